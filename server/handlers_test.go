package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	contractx "github.com/medassist-io/medassist/agent/contract"
	conversationx "github.com/medassist-io/medassist/agent/conversation"
	guardx "github.com/medassist-io/medassist/agent/guard"
	storex "github.com/medassist-io/medassist/clinic/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAgent struct {
	reply string
	err   error
	calls int
}

func (f *fakeAgent) HandleMessage(ctx context.Context, convo *conversationx.Context, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeReservations struct {
	slots map[int64]*storex.TimeSlot

	reserveErr error
	cancelErr  error
}

func (f *fakeReservations) Slot(ctx context.Context, id int64) (*storex.TimeSlot, error) {
	slot, ok := f.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%d", storex.ErrSlotNotFound, id)
	}
	copied := *slot
	return &copied, nil
}

func (f *fakeReservations) Reserve(ctx context.Context, id int64, identity string) (*storex.TimeSlot, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	slot, err := f.Slot(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.Patient != nil {
		return slot, fmt.Errorf("%w: id=%d", storex.ErrSlotTaken, id)
	}
	occupant := identity
	f.slots[id].Patient = &occupant
	return f.Slot(ctx, id)
}

func (f *fakeReservations) Cancel(ctx context.Context, id int64, identity string) (*storex.TimeSlot, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	slot, err := f.Slot(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.Patient != nil && !strings.EqualFold(*slot.Patient, identity) {
		return slot, fmt.Errorf("%w: id=%d", storex.ErrNotOccupant, id)
	}
	f.slots[id].Patient = nil
	return f.Slot(ctx, id)
}

type fakeTranscripts struct {
	transcript string
	err        error
	identities []string
}

func (f *fakeTranscripts) Read(identity string) (string, error) {
	f.identities = append(f.identities, identity)
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

func strPtr(s string) *string { return &s }

func newTestServer(t *testing.T, agent Agent, reservations Reservations, transcripts Transcripts) *Server {
	t.Helper()
	if agent == nil {
		agent = &fakeAgent{reply: "ok"}
	}
	if reservations == nil {
		reservations = &fakeReservations{slots: map[int64]*storex.TimeSlot{}}
	}
	if transcripts == nil {
		transcripts = &fakeTranscripts{}
	}
	sessions := conversationx.NewManager(5, time.Now)
	return New(agent, sessions, reservations, transcripts, guardx.New("Martini"))
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeReservation(t *testing.T, rec *httptest.ResponseRecorder) reservationResponse {
	t.Helper()
	var out reservationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleMessageReturnsReply(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{reply: "Dr. Muller is our cardiologist."}
	srv := newTestServer(t, agent, nil, nil)

	rec := postForm(t, srv, "/msg", url.Values{"msg": {"who treats heart conditions?"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Dr. Muller is our cardiologist." {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
	if agent.calls != 1 {
		t.Fatalf("expected one agent call, got %d", agent.calls)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, sessionCookie) {
		t.Fatalf("expected a session cookie, got %q", cookie)
	}
}

func TestHandleMessageRequiresMsg(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil, nil)
	rec := postForm(t, srv, "/msg", url.Values{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleMessageUnresolvedTurnApologizes(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{err: fmt.Errorf("%w: budget exhausted", contractx.ErrUnresolvedTurn)}
	srv := newTestServer(t, agent, nil, nil)

	rec := postForm(t, srv, "/msg", url.Values{"msg": {"hello"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a recoverable 200, got %d", rec.Code)
	}
	if rec.Body.String() != apologyReply {
		t.Fatalf("expected the apology, got %q", rec.Body.String())
	}
}

func TestHandleMessageInternalFailure(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{err: errors.New("audit write failed")}
	srv := newTestServer(t, agent, nil, nil)

	rec := postForm(t, srv, "/msg", url.Values{"msg": {"hello"}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestReservationViewAvailableSlot(t *testing.T) {
	t.Parallel()

	reservations := &fakeReservations{slots: map[int64]*storex.TimeSlot{
		0: {ID: 0, Doctor: "Dr. Lyubor", TimeSlot: "10-01-2025 09:00:00"},
	}}
	srv := newTestServer(t, nil, reservations, nil)

	rec := get(t, srv, "/res?id=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["slot_status"] != "available" || out["doctor"] != "Dr. Lyubor" {
		t.Fatalf("unexpected response: %v", out)
	}
}

func TestReservationViewOwnReservation(t *testing.T) {
	t.Parallel()

	reservations := &fakeReservations{slots: map[int64]*storex.TimeSlot{
		1: {ID: 1, Doctor: "Dr. Lyubor", TimeSlot: "10-01-2025 10:00:00", Patient: strPtr("Martini")},
	}}
	srv := newTestServer(t, nil, reservations, nil)

	rec := get(t, srv, "/res?id=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["slot_status"] != "reserved" {
		t.Fatalf("expected reserved status, got %v", out["slot_status"])
	}
}

func TestReservationViewForeignReservationDenied(t *testing.T) {
	t.Parallel()

	reservations := &fakeReservations{slots: map[int64]*storex.TimeSlot{
		6: {ID: 6, Doctor: "Dr. Mirabella", Patient: strPtr("Russel")},
	}}
	srv := newTestServer(t, nil, reservations, nil)

	rec := get(t, srv, "/res?id=6")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestReservationViewMissingSlot(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil, nil)
	rec := get(t, srv, "/res?id=99")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReservationViewInvalidID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil, nil)
	for _, raw := range []string{"", "abc", "-3"} {
		rec := get(t, srv, "/res?id="+raw)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id=%q: expected 400, got %d", raw, rec.Code)
		}
	}
}

func TestSetReservationSuccess(t *testing.T) {
	t.Parallel()

	reservations := &fakeReservations{slots: map[int64]*storex.TimeSlot{
		0: {ID: 0, Doctor: "Dr. Lyubor"},
	}}
	srv := newTestServer(t, nil, reservations, nil)

	rec := postForm(t, srv, "/setReservation", url.Values{"slot_id": {"0"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decodeReservation(t, rec)
	if out.SlotStatus != "reserved" || out.Response != "Reservation successful" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if occupant := reservations.slots[0].Patient; occupant == nil || *occupant != "Martini" {
		t.Fatalf("expected Martini as occupant, got %v", occupant)
	}
}

func TestSetReservationConflict(t *testing.T) {
	t.Parallel()

	reservations := &fakeReservations{slots: map[int64]*storex.TimeSlot{
		6: {ID: 6, Doctor: "Dr. Mirabella", Patient: strPtr("Russel")},
	}}
	srv := newTestServer(t, nil, reservations, nil)

	rec := postForm(t, srv, "/setReservation", url.Values{"slot_id": {"6"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a conflict to report 200 with a status, got %d", rec.Code)
	}
	out := decodeReservation(t, rec)
	if out.SlotStatus != "unavailable" {
		t.Fatalf("expected unavailable status, got %+v", out)
	}
	if *reservations.slots[6].Patient != "Russel" {
		t.Fatal("expected the existing reservation to be untouched")
	}
}

func TestSetReservationMissingSlot(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil, nil)
	rec := postForm(t, srv, "/setReservation", url.Values{"slot_id": {"99"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	out := decodeReservation(t, rec)
	if out.SlotStatus != "unavailable" {
		t.Fatalf("expected unavailable status, got %+v", out)
	}
}

func TestCancelReservationSuccess(t *testing.T) {
	t.Parallel()

	reservations := &fakeReservations{slots: map[int64]*storex.TimeSlot{
		1: {ID: 1, Doctor: "Dr. Lyubor", Patient: strPtr("Martini")},
	}}
	srv := newTestServer(t, nil, reservations, nil)

	rec := postForm(t, srv, "/cancelReservation", url.Values{"slot_id": {"1"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decodeReservation(t, rec)
	if out.SlotStatus != "available" || out.Response != "Cancellation successful" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if reservations.slots[1].Patient != nil {
		t.Fatal("expected the slot to be freed")
	}
}

func TestCancelReservationForeignOccupant(t *testing.T) {
	t.Parallel()

	reservations := &fakeReservations{slots: map[int64]*storex.TimeSlot{
		6: {ID: 6, Doctor: "Dr. Mirabella", Patient: strPtr("Russel")},
	}}
	srv := newTestServer(t, nil, reservations, nil)

	rec := postForm(t, srv, "/cancelReservation", url.Values{"slot_id": {"6"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decodeReservation(t, rec)
	if out.SlotStatus != "reserved" {
		t.Fatalf("expected reserved status, got %+v", out)
	}
	if *reservations.slots[6].Patient != "Russel" {
		t.Fatal("expected the reservation to survive")
	}
}

func TestHistoryServesTranscript(t *testing.T) {
	t.Parallel()

	transcripts := &fakeTranscripts{transcript: "[10-06-2026 14:30:05] user: hello\n\n"}
	srv := newTestServer(t, nil, nil, transcripts)

	rec := get(t, srv, "/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("expected a plain-text response, got %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != transcripts.transcript {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
	if len(transcripts.identities) != 1 || transcripts.identities[0] != "Martini" {
		t.Fatalf("expected the acting identity to be read, got %v", transcripts.identities)
	}
}

func TestSessionCookieReused(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{reply: "ok"}
	srv := newTestServer(t, agent, nil, nil)

	first := postForm(t, srv, "/msg", url.Values{"msg": {"hello"}})
	cookie := first.Header().Get("Set-Cookie")
	if cookie == "" {
		t.Fatal("expected a session cookie on first contact")
	}

	req := httptest.NewRequest(http.MethodPost, "/msg", strings.NewReader(url.Values{"msg": {"again"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", strings.Split(cookie, ";")[0])
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	if rec.Header().Get("Set-Cookie") != "" {
		t.Fatal("expected no new cookie when one is presented")
	}
	if agent.calls != 2 {
		t.Fatalf("expected two agent calls, got %d", agent.calls)
	}
}
