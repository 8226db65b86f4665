package connection

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BEAM-backend/internal/wire"
)

// HTTPRadio speaks to the peripheral emulator over HTTP. Discovery is a
// lookup in a static device table: a device that is not listed behaves
// like one that never comes into range, so the scan blocks until the
// context expires.
type HTTPRadio struct {
	client  *http.Client
	devices map[string]string // advertised name -> base URL
}

func NewHTTPRadio(devices map[string]string) *HTTPRadio {
	return &HTTPRadio{
		client:  &http.Client{Timeout: 15 * time.Second},
		devices: devices,
	}
}

func (r *HTTPRadio) Scan(ctx context.Context, deviceName string) (string, error) {
	base, ok := r.devices[deviceName]
	if !ok {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return base, nil
}

func (r *HTTPRadio) Connect(ctx context.Context, addr string) (Peripheral, error) {
	// Capability discovery: the device must answer on its health endpoint
	// before the link counts as established.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/healthz", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device refused connection: status %d", resp.StatusCode)
	}
	return &httpPeripheral{client: r.client, base: addr}, nil
}

type httpPeripheral struct {
	client *http.Client
	base   string
}

func (p *httpPeripheral) charURL(charID string) string {
	return p.base + "/services/" + wire.ServiceUUID + "/characteristics/" + charID
}

func (p *httpPeripheral) Read(ctx context.Context, charID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.charURL(charID), nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("read %s: status %d", charID, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (p *httpPeripheral) WriteNoResponse(ctx context.Context, charID string, payload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.charURL(charID), strings.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	// The write characteristic always answers 204; anything else means
	// the transport itself failed.
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("write %s: status %d", charID, resp.StatusCode)
	}
	return nil
}

func (p *httpPeripheral) Close() error { return nil }
