package fwenable

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/Schleppy/fwenable/internal/ctxlog"
)

// Enabler performs one complete rule request against the portal.
type Enabler interface {
	Enable(ctx context.Context, req RuleRequest) error
}

// Negotiator drives the portal's form sequence. Each Enable call negotiates
// a new session.
type Negotiator struct {
	baseURL    string
	userAgent  string
	creds      Credentials
	httpClient *http.Client
	delay      Delayer
	out        io.Writer
}

type Option func(*Negotiator)

// WithHTTPClient replaces the default client. Its cookie jar, if any, is used as is.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Negotiator) { n.httpClient = c }
}

func WithDelayer(d Delayer) Option {
	return func(n *Negotiator) { n.delay = d }
}

// WithOutput sets where progress is narrated. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(n *Negotiator) { n.out = w }
}

// NewNegotiator returns a Negotiator for the portal described by conf.
func NewNegotiator(conf Config, opts ...Option) (*Negotiator, error) {
	conf = conf.WithDefaults()

	base, err := url.Parse(conf.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse portal url %s", conf.URL)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("portal url %q must be absolute", conf.URL)
	}

	n := &Negotiator{
		baseURL:   base.String(),
		userAgent: conf.UserAgent,
		creds:     conf.Credentials(),
		out:       io.Discard,
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.Wrap(err, "cookie jar")
		}
		n.httpClient = &http.Client{
			Timeout: time.Duration(conf.Timeout) * time.Second,
			Jar:     jar,
		}
	}
	if n.delay == nil {
		n.delay = RandomDelay{Min: conf.MinDelay, Max: conf.MaxDelay, Out: n.out}
	}
	return n, nil
}

func (n *Negotiator) say(format string, args ...interface{}) {
	fmt.Fprintf(n.out, format+"\n", args...)
}

// Enable requests the rules in req. Any unexpected portal response aborts
// the sequence with a *ProtocolMismatchError.
func (n *Negotiator) Enable(ctx context.Context, req RuleRequest) error {
	n.say("  Obtaining session id.")
	body, err := n.get(ctx, StageInit)
	if err != nil {
		return err
	}
	s, err := open(body)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Session opened.", "id", s.id)

	if err := n.step(ctx, s, "1", n.creds.Username, StageSentUser, "  Sending user name %s.", n.creds.Username); err != nil {
		return err
	}
	if err := n.step(ctx, s, "2", n.creds.Password, StageSentPass, "  Sending password."); err != nil {
		return err
	}

	switch req.Kind {
	case RuleStandard:
		if err := n.step(ctx, s, "3", ruleTypeStandard, StageSentRuleType, "  Requesting standard sign-on rules."); err != nil {
			return err
		}
	case RuleSpecific:
		if err := n.step(ctx, s, "3", ruleTypeSpecific, StageSentRuleType, "  Requesting specific sign-on rules."); err != nil {
			return err
		}
		form := req.hostForm()
		form.Set(fieldID, s.id)
		form.Set(fieldState, "4")
		if err := n.delay.Delay(ctx); err != nil {
			return err
		}
		n.say("  Sending requested host and service name(s).")
		body, err := n.post(ctx, s.stage, form)
		if err != nil {
			return err
		}
		s.stage = StageSentHosts
		if err := checkAuthorized(req, body); err != nil {
			return err
		}
		n.say("  All requested host and services authenticated.")
	default:
		return errors.Errorf("unknown rule kind %s", req.Kind)
	}

	s.stage = StageDone
	return nil
}

// step posts a single DATA value for the given STATE and advances s.
func (n *Negotiator) step(ctx context.Context, s *session, state, data string, next Stage, format string, args ...interface{}) error {
	if err := n.delay.Delay(ctx); err != nil {
		return err
	}
	n.say(format, args...)
	form := url.Values{}
	form.Set(fieldID, s.id)
	form.Set(fieldState, state)
	form.Set(fieldData, data)
	if _, err := n.post(ctx, s.stage, form); err != nil {
		return err
	}
	s.stage = next
	return nil
}

func (n *Negotiator) get(ctx context.Context, stage Stage) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create new request")
	}
	return n.do(request, stage)
}

func (n *Negotiator) post(ctx context.Context, stage Stage, form url.Values) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "failed to create new request")
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return n.do(request, stage)
}

func (n *Negotiator) do(request *http.Request, stage Stage) (string, error) {
	log := ctxlog.FromContext(request.Context())
	request.Header.Set("User-Agent", n.userAgent)

	response, err := n.httpClient.Do(request)
	if err != nil {
		if isNetworkTimeout(err) {
			return "", errors.Errorf("request timed out (stage %s)", stage)
		}
		return "", errors.Wrapf(err, "%s %s (stage %s)", request.Method, request.URL, stage)
	}
	defer response.Body.Close()

	responseBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return "", errors.Wrapf(err, "read response (stage %s)", stage)
	}
	log.Debug("Portal responded.", "method", request.Method, "url", request.URL.String(), "stage", stage.String(), "status", response.StatusCode)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", &ProtocolMismatchError{
			Stage:    stage,
			Expected: fmt.Sprintf("success status (got %d)", response.StatusCode),
			Body:     string(responseBytes),
		}
	}
	return string(responseBytes), nil
}

// isNetworkTimeout checks the error to see if it is an indication if an i/o timeout
func isNetworkTimeout(err error) bool {
	switch err := err.(type) {
	case *url.Error:
		if err, ok := err.Err.(net.Error); ok && err.Timeout() {
			return true
		}
	case net.Error:
		if err.Timeout() {
			return true
		}
	}

	return false
}
