package fwenable

import (
	"net/url"
	"strconv"
)

// HostSlots is the number of service/host pairs the portal form accepts.
const HostSlots = 10

// DefaultService is used for a slot that names a host but no service.
const DefaultService = "ssh"

// portal form field names
const (
	fieldID      = "ID"
	fieldState   = "STATE"
	fieldData    = "DATA"
	fieldService = "SERVICE"
	fieldHost    = "HOST"
)

// form values sent with STATE=3
const (
	ruleTypeStandard = "1"
	ruleTypeSpecific = "3"
)

type Credentials struct {
	Username string
	Password string
}

// HostRule is a single firewall exception request. A zero HostRule is an
// unused slot.
type HostRule struct {
	Service string `yaml:"service"`
	Host    string `yaml:"host"`
}

func (h HostRule) Empty() bool {
	return h.Host == ""
}

// Resolved returns the rule as it is sent to the portal: an unused slot
// has no service either, and a used slot without a service gets DefaultService.
func (h HostRule) Resolved() HostRule {
	if h.Host == "" {
		return HostRule{}
	}
	if h.Service == "" {
		h.Service = DefaultService
	}
	return h
}

type RuleKind int

const (
	RuleStandard RuleKind = iota
	RuleSpecific
)

func (k RuleKind) String() string {
	switch k {
	case RuleStandard:
		return "standard"
	case RuleSpecific:
		return "specific"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// RuleRequest asks for either the standard rule set or the rules in Hosts.
// Hosts is ignored for standard requests.
type RuleRequest struct {
	Kind  RuleKind
	Hosts [HostSlots]HostRule
}

func StandardRequest() RuleRequest {
	return RuleRequest{Kind: RuleStandard}
}

// SpecificRequest builds a specific request from the given slots, resolving
// default services.
func SpecificRequest(hosts [HostSlots]HostRule) RuleRequest {
	req := RuleRequest{Kind: RuleSpecific}
	for i, h := range hosts {
		req.Hosts[i] = h.Resolved()
	}
	return req
}

// HasHosts reports whether at least one slot names a host.
func (r RuleRequest) HasHosts() bool {
	for _, h := range r.Hosts {
		if !h.Empty() {
			return true
		}
	}
	return false
}

// hostForm returns the SERVICE0..9 and HOST0..9 fields. Unused slots are
// present with empty values.
func (r RuleRequest) hostForm() url.Values {
	v := url.Values{}
	for i, h := range r.Hosts {
		h = h.Resolved()
		idx := strconv.Itoa(i)
		v.Set(fieldService+idx, h.Service)
		v.Set(fieldHost+idx, h.Host)
	}
	return v
}

// Stage is the negotiator's position in the portal's form sequence.
type Stage int

const (
	StageInit Stage = iota
	StageGotID
	StageSentUser
	StageSentPass
	StageSentRuleType
	StageSentHosts
	StageDone
)

var stageNames = [...]string{
	StageInit:         "INIT",
	StageGotID:        "GOT_ID",
	StageSentUser:     "SENT_USER",
	StageSentPass:     "SENT_PASS",
	StageSentRuleType: "SENT_RULETYPE",
	StageSentHosts:    "SENT_HOSTS",
	StageDone:         "DONE",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "STAGE(" + strconv.Itoa(int(s)) + ")"
}
