package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/medassist-io/medassist/agent/contract"
	storex "github.com/medassist-io/medassist/clinic/store"
)

const apologyReply = "I am sorry, I was not able to process your request. Please try asking again."

const (
	statusReserved    = "reserved"
	statusAvailable   = "available"
	statusUnavailable = "unavailable"
)

type reservationResponse struct {
	Response   string `json:"response"`
	SlotStatus string `json:"slot_status"`
}

func (s *Server) handleMessage(c *gin.Context) {
	msg := strings.TrimSpace(c.PostForm("msg"))
	if msg == "" {
		c.String(http.StatusBadRequest, "msg is required")
		return
	}

	sessionID := s.sessionID(c)
	sess := s.sessions.Acquire(sessionID)
	defer sess.Release()

	log.Info().Str("session", sessionID).Int("len", len(msg)).Msg("message received")

	reply, err := s.agent.HandleMessage(c.Request.Context(), sess.Context(), msg)
	if err != nil {
		// An unresolved or failed turn is fatal to this turn only; the
		// session stays usable for the next message.
		if errors.Is(err, contractx.ErrUnresolvedTurn) || errors.Is(err, contractx.ErrModelInvoke) {
			log.Warn().Err(err).Str("session", sessionID).Msg("turn failed")
			c.String(http.StatusOK, apologyReply)
			return
		}
		log.Error().Err(err).Str("session", sessionID).Msg("message handling failed")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.String(http.StatusOK, reply)
}

func (s *Server) handleReservationView(c *gin.Context) {
	id, ok := parseSlotID(c.Query("id"))
	if !ok {
		c.String(http.StatusBadRequest, "invalid slot id")
		return
	}

	slot, err := s.reservations.Slot(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storex.ErrSlotNotFound) {
			c.String(http.StatusNotFound, "time slot not found")
			return
		}
		log.Error().Err(err).Int64("slot_id", id).Msg("slot lookup failed")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	status := statusAvailable
	if !slot.Available() {
		if !s.guard.Owns(*slot.Patient) {
			c.String(http.StatusUnauthorized, "not authorized to view this reservation")
			return
		}
		status = statusReserved
	}

	c.JSON(http.StatusOK, gin.H{
		"slot_id":     slot.ID,
		"doctor":      slot.Doctor,
		"time_slot":   slot.TimeSlot,
		"slot_status": status,
	})
}

func (s *Server) handleSetReservation(c *gin.Context) {
	id, ok := parseSlotID(c.PostForm("slot_id"))
	if !ok {
		c.String(http.StatusBadRequest, "invalid slot id")
		return
	}

	identity := s.guard.ActingIdentity()
	log.Info().Int64("slot_id", id).Str("identity", identity).Msg("reservation requested")

	_, err := s.reservations.Reserve(c.Request.Context(), id, identity)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, reservationResponse{
			Response:   "Reservation successful",
			SlotStatus: statusReserved,
		})
	case errors.Is(err, storex.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, reservationResponse{
			Response:   "Unable to process request.",
			SlotStatus: statusUnavailable,
		})
	case errors.Is(err, storex.ErrSlotTaken):
		c.JSON(http.StatusOK, reservationResponse{
			Response:   "Unable to process request.",
			SlotStatus: statusUnavailable,
		})
	default:
		log.Error().Err(err).Int64("slot_id", id).Msg("reserve failed")
		c.String(http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleCancelReservation(c *gin.Context) {
	id, ok := parseSlotID(c.PostForm("slot_id"))
	if !ok {
		c.String(http.StatusBadRequest, "invalid slot id")
		return
	}

	identity := s.guard.ActingIdentity()
	log.Info().Int64("slot_id", id).Str("identity", identity).Msg("cancellation requested")

	_, err := s.reservations.Cancel(c.Request.Context(), id, identity)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, reservationResponse{
			Response:   "Cancellation successful",
			SlotStatus: statusAvailable,
		})
	case errors.Is(err, storex.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, reservationResponse{
			Response:   "Unable to process request.",
			SlotStatus: statusReserved,
		})
	case errors.Is(err, storex.ErrNotOccupant):
		c.JSON(http.StatusOK, reservationResponse{
			Response:   "Unable to process request.",
			SlotStatus: statusReserved,
		})
	default:
		log.Error().Err(err).Int64("slot_id", id).Msg("cancel failed")
		c.String(http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	transcript, err := s.transcripts.Read(s.guard.ActingIdentity())
	if err != nil {
		log.Error().Err(err).Msg("transcript read failed")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(transcript))
}

func (s *Server) sessionID(c *gin.Context) string {
	if sid, err := c.Cookie(sessionCookie); err == nil && strings.TrimSpace(sid) != "" {
		return sid
	}
	sid := uuid.NewString()
	c.SetCookie(sessionCookie, sid, 86400, "/", "", false, true)
	return sid
}

func parseSlotID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
