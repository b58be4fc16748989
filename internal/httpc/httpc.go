package httpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/apismoke/internal/common"
	"golang.org/x/oauth2"
)

// Httpc builds resty clients for one target service.
type Httpc struct {
	// BaseURL is prefixed to every relative request path.
	BaseURL string
	// Timeout bounds a single request, including reading the body. Zero disables it.
	Timeout   time.Duration
	TlsConfig *tls.Config
}

// New returns a resty.Client with no credentials attached.
func (h *Httpc) New() *resty.Client {
	return h.configure(resty.NewWithClient(h.httpClient()))
}

// NewWithBearer returns a resty.Client whose every request carries
// "Authorization: Bearer <token>". The token is presented verbatim through an
// oauth2 static token source layered over the same transport New uses.
func (h *Httpc) NewWithBearer(ctx context.Context, token string) *resty.Client {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, h.httpClient())
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return h.configure(resty.NewWithClient(oauth2.NewClient(ctx, src)))
}

func (h *Httpc) configure(c *resty.Client) *resty.Client {
	if h.BaseURL != "" {
		c.SetBaseURL(h.BaseURL)
	}
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	c.SetLogger(restyLogger{logger: common.GetLogger().WithComponent("httpc")})
	return c
}

// httpClient builds the base client. TLS is applied to the transport directly
// because an oauth2 wrapper hides it from resty's SetTLSClientConfig.
// Defaults: MinVersion TLS1.2 when a TLS config is given with MinVersion zero.
func (h *Httpc) httpClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if h.TlsConfig != nil {
		cfg := h.TlsConfig.Clone()
		if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}
		tr.TLSClientConfig = cfg
	}
	return &http.Client{Transport: tr}
}

// restyLogger routes resty's internal messages into the structured logger at
// debug level; the scenario reports request failures itself.
type restyLogger struct {
	logger *common.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Debug("resty error", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Debug("resty warning", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug("resty debug", "detail", fmt.Sprintf(format, v...))
}
