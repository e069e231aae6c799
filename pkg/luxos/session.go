package luxos

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// authFormats returns the ordered credential encodings probed against the
// logon command. Firmware builds disagree on the separator, and some expect
// only one half of the credential pair.
func authFormats(username, password string) []string {
	return []string{
		username + "," + password,
		username + ":" + password,
		username + "|" + password,
		password,
		username,
	}
}

// Authenticate negotiates a session with the device. It tries each
// credential format against logon; the first response carrying a session
// token, or a CGMiner status block indicating success without one, wins.
// When every format fails it probes an unauthenticated summary call: many
// devices in this family require no authentication at all, and a data reply
// marks the session complete without a token. Returns false, never an
// error, when all methods are exhausted.
func (c *Client) Authenticate(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) bool {
	for _, format := range authFormats(c.username, c.password) {
		resp, err := c.transport.send(ctx, envelope{Command: "logon", Parameter: format})
		if err != nil {
			log.WithError(err).Debug("logon format rejected")
			continue
		}
		if id, ok := resp.SessionID(); ok {
			c.sessionID = id
			c.authenticated = true
			log.WithField("host", c.host).Debug("authenticated with session token")
			return true
		}
		if resp.StatusOK() {
			c.authenticated = true
			log.WithField("host", c.host).Debug("authenticated without session token")
			return true
		}
	}

	if resp, err := c.transport.send(ctx, envelope{Command: "summary"}); err == nil && len(resp) > 0 {
		c.authenticated = true
		log.WithField("host", c.host).Debug("device requires no authentication")
		return true
	}

	log.WithField("host", c.host).Error("authentication failed: all formats and no-auth probe exhausted")
	return false
}

// ensureAuthenticated is the single guard invoked by every mutating
// operation before its real command. It is a no-op once a session is
// established and fails silently otherwise; the command is issued either
// way and the device decides.
func (c *Client) ensureAuthenticated(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authenticated {
		return
	}
	c.authenticateLocked(ctx)
}

// Deauthenticate ends the session with a best-effort logoff. A remote
// failure is logged, never raised: local state is authoritative for
// subsequent calls, so the token is cleared regardless.
func (c *Client) Deauthenticate(ctx context.Context) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.sessionID = ""
	c.authenticated = false
	c.mu.Unlock()

	if sessionID == "" {
		return
	}
	if _, err := c.transport.send(ctx, envelope{Command: "logoff", SessionID: sessionID}); err != nil {
		log.WithError(err).WithField("host", c.host).Warn("logoff failed, session cleared locally")
	}
}
