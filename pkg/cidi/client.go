package cidi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/config"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"golang.org/x/time/rate"
)

const (
	obtenerUsuarioPath = "/api/Usuario/Obtener_Usuario_Aplicacion"
	DefaultTimeout     = 5 * time.Second

	maxResponseBytes = 1 << 20
	maxBodyInError   = 512
)

// Client consulta la API de cuentas de CiDi. No reintenta: la política de
// reintentos pertenece a quien llama.
type Client struct {
	baseURL    string
	appID      int
	loginURL   string
	logoutURL  string
	signer     *Signer
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// Option configura el Client
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout fija el límite de cada llamada; vencido devuelve CIDI_PROVIDER_TIMEOUT
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit acota las llamadas salientes a rps por segundo. rps <= 0 no limita.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.signer.now = now }
}

// NewClient crea el cliente. La configuración ya fue validada en el arranque.
func NewClient(cfg config.CidiConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.UrlApiCuenta,
		appID:      cfg.IdAplicacion,
		loginURL:   cfg.IniciarSesion,
		logoutURL:  cfg.CerrarSesion,
		signer:     NewSigner(cfg.IdAplicacion, cfg.ClientSecret, cfg.ClientKey),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}
	WithRateLimit(cfg.MaxRPS, cfg.Burst)(c)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchIdentity canjea el hash de la cookie CiDi por la identidad del usuario.
// Una respuesta sin CUIL se devuelve igual; decide quien llama.
func (c *Client) FetchIdentity(ctx context.Context, cookieHash string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.transportError(ctx, err)
		}
	}

	entrada, err := c.signer.NewEntrada(cookieHash)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(entrada)
	if err != nil {
		return nil, ErrInvalidResponse(err).WithDetail("stage", "marshal request")
	}

	endpoint := c.baseURL + obtenerUsuarioPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, ErrProviderUnavailable(err).WithDetail("url", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	logx.WithFields(logx.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).WithContext(ctx).Debug("CiDi Obtener_Usuario_Aplicacion")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrProviderStatus(resp.StatusCode, truncate(string(body), maxBodyInError))
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, ErrInvalidResponse(err).WithDetail("body", truncate(string(body), maxBodyInError))
	}

	return &identity, nil
}

// LoginURL arma la URL de login de CiDi para la aplicación. returnUrl es
// adonde vuelve CiDi con la cookie ya emitida.
func (c *Client) LoginURL(returnURL string) string {
	u, err := url.Parse(c.loginURL)
	if err != nil {
		return c.loginURL
	}
	q := u.Query()
	if c.appID > 0 {
		q.Set("app", strconv.Itoa(c.appID))
	}
	if returnURL != "" {
		q.Set("returnUrl", returnURL)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// LogoutURL arma la URL de CerrarSesion de CiDi con returnUrl
func (c *Client) LogoutURL(returnURL string) string {
	if returnURL == "" {
		return c.logoutURL
	}
	u, err := url.Parse(c.logoutURL)
	if err != nil {
		return c.logoutURL
	}
	q := u.Query()
	q.Set("returnUrl", returnURL)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrProviderTimeout(err).WithDetail("timeout", c.timeout.String())
	}
	return ErrProviderUnavailable(err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
