package fwenable

import (
	"regexp"
	"strings"
)

// stateOneMarker confirms the first response is the username page.
const stateOneMarker = `<input type="hidden" name="STATE" value="1">`

var sessionIDPattern = regexp.MustCompile(`<input type="hidden" name="ID" value="([0-9a-f]+)">`)

// ExtractSessionID returns the value of the first hidden ID input in body.
// Only lower case hex values match.
func ExtractSessionID(body string) (string, bool) {
	m := sessionIDPattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// AuthorizedMarker is the text the portal prints for each accepted host.
func AuthorizedMarker(h HostRule) string {
	return "Client Authorized for service " + h.Service + " on host " + h.Host
}

type session struct {
	id    string
	stage Stage
}

// open checks the initial page and starts a session from it.
func open(body string) (*session, error) {
	id, ok := ExtractSessionID(body)
	if !ok {
		return nil, &ProtocolMismatchError{Stage: StageInit, Expected: "session ID", Body: body}
	}
	if !strings.Contains(body, stateOneMarker) {
		return nil, &ProtocolMismatchError{Stage: StageInit, Expected: "STATE string (" + stateOneMarker + ")", Body: body}
	}
	return &session{id: id, stage: StageGotID}, nil
}

// checkAuthorized verifies the STATE=4 response lists every requested host.
func checkAuthorized(req RuleRequest, body string) error {
	for _, h := range req.Hosts {
		if h.Empty() {
			continue
		}
		expected := AuthorizedMarker(h.Resolved())
		if !strings.Contains(body, expected) {
			return &ProtocolMismatchError{Stage: StageSentHosts, Expected: "success string (" + expected + ")", Body: body}
		}
	}
	return nil
}
