package luxos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultCGMinerPort is the fixed CGMiner API control port.
	DefaultCGMinerPort = 4028

	// connectTimeout bounds TCP connection establishment.
	connectTimeout = 10 * time.Second

	// readTimeout bounds reading a full TCP response.
	readTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 256 << 10
)

// httpEndpointPaths is the fixed priority order of HTTP API endpoints tried
// after the TCP line protocol. Firmware builds differ in which one exists.
var httpEndpointPaths = []string{
	"/cgi-bin/luci/api",
	"/cgi-bin/api.cgi",
	"/api",
	"/cgi-bin/minerapi.cgi",
}

// tryOutcome classifies a single transport candidate attempt. Modeling the
// chain as ordered candidates with a uniform three-way outcome keeps the
// advance-vs-stop policy in one place.
type tryOutcome int

const (
	// tryOK means the candidate produced a usable response.
	tryOK tryOutcome = iota
	// tryAbsent means the endpoint is missing or unreachable; advance.
	tryAbsent
	// tryFailed means a reachable endpoint explicitly rejected the command; stop.
	tryFailed
)

// transport resolves one command against the candidate chain. It is
// stateless per call: the winning candidate is not pinned, and the TCP path
// is always attempted first as the fastest route for this device family.
type transport struct {
	host        string
	tcpPort     int
	readTimeout time.Duration
	httpClient  *http.Client
}

func newTransport(host string) *transport {
	return &transport{
		host:        host,
		tcpPort:     DefaultCGMinerPort,
		readTimeout: readTimeout,
		httpClient: &http.Client{
			Timeout: readTimeout,
		},
	}
}

// send resolves the command, returning the first successful Response. It
// fails with *ApplicationError when a reachable endpoint rejects the command
// and *TransportError when every candidate is exhausted.
func (t *transport) send(ctx context.Context, env envelope) (Response, error) {
	resp, outcome, err := t.tryTCP(ctx, env)
	switch outcome {
	case tryOK:
		return resp, nil
	case tryFailed:
		return nil, err
	}
	lastErr := err

	for _, path := range httpEndpointPaths {
		resp, outcome, err = t.tryHTTP(ctx, path, env)
		switch outcome {
		case tryOK:
			return resp, nil
		case tryFailed:
			return nil, err
		}
		if err != nil {
			lastErr = err
		}
	}

	cause := error(ErrAllTransportsExhausted)
	if lastErr != nil {
		cause = fmt.Errorf("%w: last failure: %w", ErrAllTransportsExhausted, lastErr)
	}
	return nil, &TransportError{Host: t.host, Err: cause}
}

// bareHost returns the host with any embedded port stripped. Hosts are
// allowed in host:port form for the web endpoints.
func (t *transport) bareHost() string {
	if h, _, err := net.SplitHostPort(t.host); err == nil {
		return h
	}
	return t.host
}

// tcpAddr returns the CGMiner control address. The host may carry a web
// port already; the control port always replaces it.
func (t *transport) tcpAddr() string {
	return net.JoinHostPort(t.bareHost(), strconv.Itoa(t.tcpPort))
}

// tryTCP attempts the CGMiner line protocol: one short-lived connection, one
// newline-terminated JSON command, read to EOF. Connect and read failures
// are recoverable; the next candidate is tried.
func (t *transport) tryTCP(ctx context.Context, env envelope) (Response, tryOutcome, error) {
	payload, err := env.marshalTCP()
	if err != nil {
		return nil, tryFailed, err
	}

	dialer := net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.tcpAddr())
	if err != nil {
		return nil, tryAbsent, fmt.Errorf("cgminer tcp: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return nil, tryAbsent, err
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, tryAbsent, fmt.Errorf("cgminer tcp write: %w", err)
	}

	raw, readErr := io.ReadAll(io.LimitReader(conn, maxResponseBytes))
	// CGMiner terminates frames with a NUL and closes the connection.
	raw = bytes.TrimRight(raw, "\x00\n")
	if len(raw) == 0 {
		if readErr == nil {
			readErr = errors.New("cgminer tcp: empty response")
		}
		return nil, tryAbsent, readErr
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		if readErr != nil {
			// The read died mid-frame; what arrived is truncated, not a
			// plain-text reply. Recoverable: the next candidate is tried.
			return nil, tryAbsent, fmt.Errorf("cgminer tcp read: %w", readErr)
		}
		// Raw-text fallback: some commands reply in plain text. Reserved
		// for cleanly terminated bodies.
		return Response{"raw_response": string(raw)}, tryOK, nil
	}
	if msg, ok := resp.ErrorMessage(); ok {
		return nil, tryFailed, &ApplicationError{Command: env.Command, Message: msg}
	}
	return resp, tryOK, nil
}

// tryHTTP posts the command to one endpoint candidate. A 404 means the
// endpoint is absent on this firmware; other non-200 statuses and network
// errors advance the chain and only surface if every candidate fails. A 200
// carrying an error field is an immediate application failure even mid-list:
// a reachable endpoint has explicitly rejected the command.
func (t *transport) tryHTTP(ctx context.Context, path string, env envelope) (Response, tryOutcome, error) {
	body, err := env.marshalHTTP()
	if err != nil {
		return nil, tryFailed, err
	}

	url := fmt.Sprintf("http://%s%s", t.host, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, tryFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, tryAbsent, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNotFound {
		return nil, tryAbsent, nil
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, tryAbsent, err
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, tryAbsent, fmt.Errorf("HTTP %d from %s: %s", httpResp.StatusCode, path, raw)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, tryAbsent, fmt.Errorf("invalid JSON from %s: %w", path, err)
	}
	if msg, ok := resp.ErrorMessage(); ok {
		return nil, tryFailed, &ApplicationError{Command: env.Command, Message: msg}
	}
	return resp, tryOK, nil
}
