package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/assistant.txt
var assistantRaw string

// System returns the assistant's system instructions with the acting
// identity filled in. The embed is compile-time; this is safe to call
// concurrently.
func System(userName string) string {
	return strings.ReplaceAll(strings.TrimSpace(assistantRaw), "{user_name}", userName)
}
