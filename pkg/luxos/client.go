package luxos

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/solminer/solminer/internal/netutil"
)

const (
	// DefaultUsername is the default LuxOS/Antminer username.
	DefaultUsername = "root"

	// DefaultPassword is the default LuxOS/Antminer password.
	DefaultPassword = "root"
)

// profileFrequencies maps power profile steps to chip frequencies in MHz,
// for firmwares that expose frequencyset but no profile command.
var profileFrequencies = map[string]int{
	"-2": 450,
	"-1": 525,
	"0":  600,
	"+1": 675,
	"+2": 750,
}

// Client is the command surface for one miner. Read operations never
// trigger authentication; mutating operations authenticate on demand
// through a single guard. The client exclusively owns its session.
type Client struct {
	host      string
	username  string
	password  string
	transport *transport

	mu            sync.Mutex
	sessionID     string
	authenticated bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for the endpoint candidates.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.transport.httpClient = httpClient
	}
}

// WithCGMinerPort overrides the CGMiner TCP control port.
func WithCGMinerPort(port int) ClientOption {
	return func(c *Client) {
		c.transport.tcpPort = port
	}
}

// NewClient creates a client for the miner at host. Empty credentials fall
// back to the firmware defaults.
func NewClient(host, username, password string, opts ...ClientOption) *Client {
	if username == "" && password == "" {
		username, password = DefaultUsername, DefaultPassword
	}

	c := &Client{
		host:      host,
		username:  username,
		password:  password,
		transport: newTransport(host),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Host returns the miner host address.
func (c *Client) Host() string {
	return c.host
}

// read issues a non-mutating command. The session token is included when
// held but never negotiated.
func (c *Client) read(ctx context.Context, command, parameter string) (Response, error) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	return c.transport.send(ctx, envelope{Command: command, Parameter: parameter, SessionID: sessionID})
}

// mutate issues a state-changing command behind the authentication guard.
func (c *Client) mutate(ctx context.Context, command, parameter string) (Response, error) {
	c.ensureAuthenticated(ctx)
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	return c.transport.send(ctx, envelope{Command: command, Parameter: parameter, SessionID: sessionID})
}

// mutateWithFallback issues the primary command and retries once under the
// alternate command name when the primary fails. Vendors renamed several
// board controls across firmware generations.
func (c *Client) mutateWithFallback(ctx context.Context, primary, alternate, parameter string) (Response, error) {
	resp, err := c.mutate(ctx, primary, parameter)
	if err == nil {
		return resp, nil
	}
	return c.mutate(ctx, alternate, parameter)
}

// GetSummary returns miner summary information.
func (c *Client) GetSummary(ctx context.Context) (Response, error) {
	return c.read(ctx, "summary", "")
}

// GetStats returns detailed miner statistics.
func (c *Client) GetStats(ctx context.Context) (Response, error) {
	return c.read(ctx, "stats", "")
}

// GetDevs returns per-device (hashboard) information.
func (c *Client) GetDevs(ctx context.Context) (Response, error) {
	return c.read(ctx, "devs", "")
}

// GetPools returns mining pool information.
func (c *Client) GetPools(ctx context.Context) (Response, error) {
	return c.read(ctx, "pools", "")
}

// GetVersion returns firmware version information.
func (c *Client) GetVersion(ctx context.Context) (Response, error) {
	return c.read(ctx, "version", "")
}

// GetFrequency returns the current chip frequency.
func (c *Client) GetFrequency(ctx context.Context) (Response, error) {
	return c.read(ctx, "frequencyget", "")
}

// GetProfile returns the current power profile.
func (c *Client) GetProfile(ctx context.Context) (Response, error) {
	return c.read(ctx, "profileget", "")
}

// GetHealthChip returns chip health information.
func (c *Client) GetHealthChip(ctx context.Context) (Response, error) {
	return c.read(ctx, "healthchipget", "")
}

// Pause pauses all mining operations.
func (c *Client) Pause(ctx context.Context) (Response, error) {
	return c.mutate(ctx, "pause", "")
}

// Resume resumes mining operations.
func (c *Client) Resume(ctx context.Context) (Response, error) {
	return c.mutate(ctx, "resume", "")
}

// Reboot reboots the miner. The device is expected to become unreachable
// shortly after a successful reply.
func (c *Client) Reboot(ctx context.Context) (Response, error) {
	return c.mutate(ctx, "reboot", "")
}

// EnableBoard enables a specific hashboard.
func (c *Client) EnableBoard(ctx context.Context, boardID int) (Response, error) {
	return c.mutateWithFallback(ctx, "enableboard", "ascenable", strconv.Itoa(boardID))
}

// DisableBoard disables a specific hashboard.
func (c *Client) DisableBoard(ctx context.Context, boardID int) (Response, error) {
	return c.mutateWithFallback(ctx, "disableboard", "ascdisable", strconv.Itoa(boardID))
}

// SetFrequency sets the chip frequency in MHz.
func (c *Client) SetFrequency(ctx context.Context, frequency int) (Response, error) {
	return c.mutate(ctx, "frequencyset", strconv.Itoa(frequency))
}

// SetProfile sets the power profile. Three strategies are tried strictly in
// order, each only on failure of the prior: the profileset command, the
// older profile command, and finally a direct frequency-table lookup for
// firmwares with no profile support at all.
func (c *Client) SetProfile(ctx context.Context, profile string) (Response, error) {
	resp, err := c.mutate(ctx, "profileset", profile)
	if err == nil {
		return resp, nil
	}

	resp, altErr := c.mutate(ctx, "profile", profile)
	if altErr == nil {
		return resp, nil
	}

	frequency, ok := profileFrequencies[profile]
	if !ok {
		return nil, err
	}
	return c.SetFrequency(ctx, frequency)
}

// SetPowerLimit sets the power limit in watts.
func (c *Client) SetPowerLimit(ctx context.Context, watts int) (Response, error) {
	return c.mutate(ctx, "power", strconv.Itoa(watts))
}

// CurtailPower curtails power draw to the given fraction of normal.
func (c *Client) CurtailPower(ctx context.Context, fraction float64) (Response, error) {
	return c.mutate(ctx, "curtail", strconv.FormatFloat(fraction, 'g', -1, 64))
}

// SetFanSpeed sets the fan speed in RPM.
func (c *Client) SetFanSpeed(ctx context.Context, rpm int) (Response, error) {
	return c.mutate(ctx, "fanset", strconv.Itoa(rpm))
}

// TestConnection validates connectivity end to end: TCP reachability of the
// control or web port, a version call, and an authentication attempt. Used
// by explicit validation flows; normal polling never calls it.
func (c *Client) TestConnection(ctx context.Context) error {
	prober := netutil.NewProber(netutil.WithProbeTimeout(connectTimeout))
	host := c.transport.bareHost()
	if !prober.IsPortOpen(ctx, host, c.transport.tcpPort) && !prober.IsPortOpen(ctx, host, 80) {
		return &TransportError{Host: c.host, Err: ErrAllTransportsExhausted}
	}
	if _, err := c.GetVersion(ctx); err != nil {
		return err
	}
	if !c.Authenticate(ctx) {
		return ErrAuthenticationFailed
	}
	return nil
}

// Close logs off when a session token is held, then releases the connection
// pool. Safe to call unconditionally during teardown, whether or not the
// caller ever authenticated.
func (c *Client) Close(ctx context.Context) {
	c.Deauthenticate(ctx)
	c.transport.httpClient.CloseIdleConnections()
}
