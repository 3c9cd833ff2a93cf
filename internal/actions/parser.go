package actions

import (
	"encoding/json"
	"regexp"
	"strings"

	"nbclient/internal/logging"
)

// fenceRe matches a code fence tagged as JSON. (?s) lets the body span
// lines; the match is lazy so trailing prose after the fence survives.
var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)\\s*(.+?)\\s*```")

// Parse extracts a structured {message, actions} payload from raw model
// text. Model output is unreliable input: the parser's job is to extract
// structure when present, never to enforce it, so it never fails.
//
// Priority order:
//  1. A fenced block tagged as JSON is parsed; its message field (or the
//     text with the fence stripped, if absent) becomes the message.
//  2. Text starting with '{' is tried as bare JSON, accepted only if the
//     object carries a message or actions key (guards against prose that
//     merely looks like JSON).
//  3. Anything else, including any parse failure above, is a plain message
//     with no actions.
func Parse(text string) Response {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if resp, ok := tryStructured(m[1]); ok {
			if resp.Message == "" {
				resp.Message = strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
			}
			logging.ParserDebug("parsed fenced response (%d actions)", len(resp.Actions))
			return resp
		}
		logging.ParserDebug("fenced block did not parse; falling back to plain text")
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		if resp, ok := tryStructured(trimmed); ok {
			logging.ParserDebug("parsed bare JSON response (%d actions)", len(resp.Actions))
			return resp
		}
	}

	return Response{Message: text}
}

// tryStructured parses s as a structured response. The object must carry a
// message or actions key to count as structured.
func tryStructured(s string) (Response, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return Response{}, false
	}
	_, hasMessage := probe["message"]
	_, hasActions := probe["actions"]
	if !hasMessage && !hasActions {
		return Response{}, false
	}

	var resp Response
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}
