package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/charliek/revive/internal/config"
	"github.com/charliek/revive/internal/domain"
	"github.com/charliek/revive/internal/metrics"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Hetzner implements Gateway against the Hetzner Cloud API
type Hetzner struct {
	client          *hcloud.Client
	timeout         time.Duration
	defaultLocation string
	waitForCreate   bool
	logger          *slog.Logger
}

// NewHetzner creates a Hetzner gateway. Extra client options are appended
// after the ones derived from cfg.
func NewHetzner(cfg config.ProviderConfig, version string, logger *slog.Logger, opts ...hcloud.ClientOption) *Hetzner {
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := []hcloud.ClientOption{
		hcloud.WithToken(cfg.Token),
		hcloud.WithApplication("revive", version),
		hcloud.WithPollBackoffFunc(hcloud.ConstantBackoff(time.Second)),
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, hcloud.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	return &Hetzner{
		client:          hcloud.NewClient(clientOpts...),
		timeout:         cfg.RequestTimeout,
		defaultLocation: cfg.DefaultLocation,
		waitForCreate:   cfg.WaitForCreate,
		logger:          logger.With("component", "provider"),
	}
}

// Fetch returns the server's current state
func (h *Hetzner) Fetch(ctx context.Context, serverID string) (info domain.ServerInfo, err error) {
	defer observe("fetch", &err)()

	id, err := parseID(serverID)
	if err != nil {
		return domain.ServerInfo{}, err
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	server, _, err := h.client.Server.GetByID(ctx, id)
	if err != nil {
		return domain.ServerInfo{}, classify("fetch server "+serverID, err)
	}
	if server == nil {
		return domain.ServerInfo{}, fmt.Errorf("fetch server %s: %w", serverID, domain.ErrNotFound)
	}

	return h.serverInfo(server), nil
}

// FindByName looks a server up by its unique name
func (h *Hetzner) FindByName(ctx context.Context, name string) (info domain.ServerInfo, err error) {
	defer observe("find", &err)()

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	server, _, err := h.client.Server.GetByName(ctx, name)
	if err != nil {
		return domain.ServerInfo{}, classify("find server "+name, err)
	}
	if server == nil {
		return domain.ServerInfo{}, fmt.Errorf("find server %s: %w", name, domain.ErrNotFound)
	}

	return h.serverInfo(server), nil
}

// Delete removes the server and waits for the delete action. The replacement
// reuses the name, which Hetzner only frees once the delete has finished.
func (h *Hetzner) Delete(ctx context.Context, serverID string) (err error) {
	defer observe("delete", &err)()

	id, err := parseID(serverID)
	if err != nil {
		return err
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	result, _, err := h.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: id})
	if err != nil {
		if hcloud.IsError(err, hcloud.ErrorCodeNotFound) {
			h.logger.Info("server already gone", "server_id", serverID)
			return nil
		}
		return classify("delete server "+serverID, err)
	}

	if result != nil && result.Action != nil {
		if err := h.client.Action.WaitFor(ctx, result.Action); err != nil {
			return classify("waiting for delete of server "+serverID, err)
		}
	}

	return nil
}

// Create provisions a server from spec
func (h *Hetzner) Create(ctx context.Context, spec domain.RecoverySpec) (created domain.CreatedServer, err error) {
	defer observe("create", &err)()

	if spec.Location == "" {
		spec.Location = h.defaultLocation
	}
	if !spec.IsComplete() {
		return domain.CreatedServer{}, fmt.Errorf("create server: %w: incomplete spec %s", domain.ErrInvalidSpec, spec)
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	opts := hcloud.ServerCreateOpts{
		Name:       spec.Name,
		ServerType: &hcloud.ServerType{Name: spec.ServerType},
		Image:      imageRef(spec.Image),
		Location:   &hcloud.Location{Name: spec.Location},
	}

	result, _, err := h.client.Server.Create(ctx, opts)
	if err != nil {
		return domain.CreatedServer{}, classify("create server "+spec.Name, err)
	}
	if result.Server == nil {
		return domain.CreatedServer{}, fmt.Errorf("create server %s: %w: empty response", spec.Name, domain.ErrTransient)
	}

	created = domain.CreatedServer{
		ServerID:     strconv.FormatInt(result.Server.ID, 10),
		Address:      publicAddress(result.Server),
		RootPassword: result.RootPassword,
	}

	if h.waitForCreate && result.Action != nil {
		// The server exists at this point; a failed wait is logged, not returned,
		// so the caller still installs it.
		if err := h.client.Action.WaitFor(ctx, result.Action); err != nil {
			h.logger.Warn("waiting for create action failed",
				"server_id", created.ServerID,
				"error", err)
		}
	}

	return created, nil
}

func (h *Hetzner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func (h *Hetzner) serverInfo(s *hcloud.Server) domain.ServerInfo {
	spec := domain.RecoverySpec{
		Name:     s.Name,
		Location: h.defaultLocation,
	}
	if s.ServerType != nil {
		spec.ServerType = s.ServerType.Name
	}
	if s.Image != nil {
		spec.Image = s.Image.Name
		if spec.Image == "" && s.Image.ID != 0 {
			// snapshots and backups have no name
			spec.Image = strconv.FormatInt(s.Image.ID, 10)
		}
	}
	if s.Datacenter != nil && s.Datacenter.Location != nil && s.Datacenter.Location.Name != "" {
		spec.Location = s.Datacenter.Location.Name
	}

	return domain.ServerInfo{
		ServerID: strconv.FormatInt(s.ID, 10),
		Address:  publicAddress(s),
		Status:   string(s.Status),
		Spec:     spec,
	}
}

func publicAddress(s *hcloud.Server) string {
	if ip := s.PublicNet.IPv4.IP; ip != nil && !ip.IsUnspecified() {
		return ip.String()
	}
	if ip := s.PublicNet.IPv6.IP.To16(); ip != nil && !ip.IsUnspecified() {
		// IPv6-only servers answer on ::1 of their /64
		addr := make(net.IP, net.IPv6len)
		copy(addr, ip)
		addr[net.IPv6len-1] = 1
		return addr.String()
	}
	return ""
}

func imageRef(image string) *hcloud.Image {
	if id, err := strconv.ParseInt(image, 10, 64); err == nil {
		return &hcloud.Image{ID: id}
	}
	return &hcloud.Image{Name: image}
}

func parseID(serverID string) (int64, error) {
	if err := domain.ValidateServerID(serverID); err != nil {
		return 0, err
	}
	id, _ := strconv.ParseInt(serverID, 10, 64)
	return id, nil
}

// classify wraps a hcloud error in the matching domain error kind
func classify(op string, err error) error {
	switch {
	case hcloud.IsError(err, hcloud.ErrorCodeNotFound):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrNotFound, err)
	case hcloud.IsError(err, hcloud.ErrorCodeResourceLimitExceeded):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrQuotaExceeded, err)
	case hcloud.IsError(err, hcloud.ErrorCodeInvalidInput, hcloud.ErrorCodeUniquenessError):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrInvalidSpec, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTransient, err)
	}
}

// observe records a provider call in the metrics; use as defer observe(op, &err)()
func observe(op string, err *error) func() {
	timer := metrics.NewTimer()
	return func() {
		timer.ObserveDurationVec(metrics.ProviderRequestDuration, op)
		metrics.ProviderRequestsTotal.WithLabelValues(op, resultLabel(*err)).Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrInvalidSpec), errors.Is(err, domain.ErrInvalidServerID):
		return "invalid"
	default:
		return "transient"
	}
}
