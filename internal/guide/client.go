package guide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hartleigh/tivod/internal/channels"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

// maxResponseSize caps API response bodies.
const maxResponseSize = 16 << 20

// authCodeRe extracts the authorization code from the OIDC redirect.
var authCodeRe = regexp.MustCompile(`code=(.*)&`)

// Client is a low-level platform guide API client. It performs the web
// login flow and the authenticated listing calls; session lifetime and
// retry policy live in Service.
type Client struct {
	baseURL     string
	loginURL    string
	scheduleMax int
	http        *http.Client
	logger      *logging.Logger
}

// NewClient creates a guide API client.
//
// The login flow depends on manual redirect handling (the authorization
// code arrives in a Location header that must not be followed) and on a
// cookie jar carried across the login steps.
func NewClient(baseURL, loginURL string, scheduleMax int, timeout time.Duration, logger *logging.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		loginURL:    loginURL,
		scheduleMax: scheduleMax,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.With("component", "guide"),
	}, nil
}

// Login performs the full web login flow and returns the session used
// by the authenticated API calls.
//
// The flow is six steps: fetch the authorization state, follow the
// authorization URI for its cookie, post the credentials, collect the
// authorization code from the redirect, trade the code for a refresh
// token, then open the API session with that token.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	// Step 1: authorization state, URI and validity token.
	var details authDetailsResponse
	if err := c.getJSON(ctx, c.baseURL+"/authorization", nil, nil, &details); err != nil {
		return nil, fmt.Errorf("%w: authorization details: %v", ErrLogin, err)
	}

	// Step 2: the authorization URI sets the cookie the login needs.
	if _, _, err := c.get(ctx, details.Session.AuthorizationURI, nil, nil); err != nil {
		return nil, fmt.Errorf("%w: authorization cookie: %v", ErrLogin, err)
	}

	// Step 3: post the credentials; the follow-up location arrives in a
	// custom header.
	loginHeaders, _, err := c.post(ctx, c.loginURL,
		map[string]any{"username": username, "credential": password},
		nil, http.Header{"Accept": {"*/*"}})
	if err != nil {
		return nil, fmt.Errorf("%w: credentials rejected: %v", ErrLogin, err)
	}
	redirect := loginHeaders.Get("x-redirect-location")
	if redirect == "" {
		return nil, fmt.Errorf("%w: no redirect location after login", ErrLogin)
	}

	// Step 4: the redirect's Location header carries the code.
	codeHeaders, _, err := c.get(ctx, redirect, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authorization code: %v", ErrLogin, err)
	}
	matches := authCodeRe.FindStringSubmatch(codeHeaders.Get("Location"))
	if len(matches) != 2 {
		return nil, fmt.Errorf("%w: no authorization code in redirect", ErrLogin)
	}

	// Step 5: trade the code for a refresh token.
	var reauth reauthorizeResponse
	if err := c.postJSON(ctx, c.baseURL+"/authorization",
		map[string]any{
			"authorizationGrant": map[string]any{
				"authorizationCode": matches[1],
				"state":             details.Session.State,
				"validityToken":     details.Session.ValidityToken,
			},
		}, nil, &reauth); err != nil {
		return nil, fmt.Errorf("%w: reauthorization: %v", ErrLogin, err)
	}

	// Step 6: open the API session.
	var session Session
	if err := c.postJSON(ctx, c.baseURL+"/session",
		map[string]any{
			"refreshToken": reauth.RefreshToken,
			"username":     reauth.Username,
		}, url.Values{"token": {"true"}}, &session); err != nil {
		return nil, fmt.Errorf("%w: opening session: %v", ErrLogin, err)
	}
	if !session.Valid() {
		return nil, fmt.Errorf("%w: incomplete session in response", ErrLogin)
	}

	c.logger.Info("platform login complete", "username", session.Username)
	return &session, nil
}

// Channels fetches the account's channel listing using the given
// session. A rejected session surfaces as ErrUnauthorized without any
// internal retry.
func (c *Client) Channels(ctx context.Context, session *Session) ([]channels.PlatformChannel, error) {
	var resp channelsResponse
	err := c.getJSON(ctx, c.baseURL+"/channels",
		url.Values{
			"byLocationId":       {session.LocationID},
			"includeInvisible":   {"true"},
			"includeNotEntitled": {"false"},
			"personalised":       {"true"},
			"sort":               {"channelNumber"},
		},
		sessionHeaders(session), &resp)
	if err != nil {
		return nil, err
	}

	// Sub-channels hold the HD variants on some packages; they matter
	// as much as their parents.
	var out []channels.PlatformChannel
	var add func(ch apiChannel)
	add = func(ch apiChannel) {
		if pc, ok := toPlatformChannel(ch); ok {
			out = append(out, pc)
		}
		for _, sub := range ch.SubChannels {
			add(sub)
		}
	}
	for _, ch := range resp.Channels {
		add(ch)
	}

	c.logger.Debug("platform channels fetched", "channels", len(out))
	return out, nil
}

// Listings fetches the programme schedule for one station starting at
// the given instant.
func (c *Client) Listings(ctx context.Context, session *Session, stationID string, start time.Time, duration time.Duration) ([]Program, error) {
	startMS := start.Unix() * 1000
	endMS := start.Add(duration).Unix() * 1000

	var resp listingsResponse
	err := c.getJSON(ctx, c.baseURL+"/listings",
		url.Values{
			"byLocationId": {session.LocationID},
			"byStationId":  {stationID},
			"byEndTime":    {fmt.Sprintf("%d~%d", startMS, endMS)},
			"sort":         {"startTime|asc"},
			"range":        {fmt.Sprintf("1-%d", c.scheduleMax)},
		},
		sessionHeaders(session), &resp)
	if err != nil {
		return nil, err
	}

	programs := make([]Program, 0, len(resp.Listings))
	for _, l := range resp.Listings {
		programs = append(programs, Program{
			Title:          l.Program.Title,
			SecondaryTitle: l.Program.SecondaryTitle,
			Description:    l.Program.Description,
			Start:          time.UnixMilli(l.StartTime),
			End:            time.UnixMilli(l.EndTime),
		})
	}
	return programs, nil
}

func sessionHeaders(session *Session) http.Header {
	return http.Header{
		"X-OESP-Token":    {session.OESPToken},
		"X-OESP-Username": {session.Username},
	}
}

func toPlatformChannel(ch apiChannel) (channels.PlatformChannel, bool) {
	if ch.Title == "" {
		return channels.PlatformChannel{}, false
	}
	pc := channels.PlatformChannel{
		ID:         ch.ID,
		Name:       ch.Title,
		Definition: channels.DefinitionSD,
	}
	if len(ch.StationSchedules) > 0 {
		station := ch.StationSchedules[0].Station
		pc.StationID = station.ID
		if station.IsHD {
			pc.Definition = channels.DefinitionHD
		}
	}
	if pc.ID == "" {
		pc.ID = pc.StationID
	}
	if pc.ID == "" {
		return channels.PlatformChannel{}, false
	}
	return pc, true
}

// get issues a GET without following redirects and returns the response
// headers and body for 200 and 302 responses.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (http.Header, []byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, params, headers)
}

// post issues a JSON POST and returns the response headers and body.
func (c *Client) post(ctx context.Context, rawURL string, body any, params url.Values, headers http.Header) (http.Header, []byte, error) {
	return c.do(ctx, http.MethodPost, rawURL, body, params, headers)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, params url.Values, headers http.Header) (http.Header, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if params != nil {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusFound:
		return resp.Header, payload, nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		return nil, nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, headers http.Header, out any) error {
	_, payload, err := c.get(ctx, rawURL, params, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrFetch, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, rawURL string, body any, params url.Values, out any) error {
	_, payload, err := c.post(ctx, rawURL, body, params, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrFetch, err)
	}
	return nil
}
