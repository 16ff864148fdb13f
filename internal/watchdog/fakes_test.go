package watchdog

import (
	"context"
	"fmt"
	"sync"

	"github.com/charliek/revive/internal/domain"
)

var testSpec = domain.RecoverySpec{Name: "vpn", ServerType: "cx22", Image: "ubuntu-24.04", Location: "nbg1"}

// fakeGateway records calls and answers from per-call hooks
type fakeGateway struct {
	mu      sync.Mutex
	calls   []string
	fetch   func(id string) (domain.ServerInfo, error)
	delete  func(id string) error
	find    func(name string) (domain.ServerInfo, error)
	create  func(spec domain.RecoverySpec) (domain.CreatedServer, error)
	created []domain.RecoverySpec
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		fetch: func(id string) (domain.ServerInfo, error) {
			return domain.ServerInfo{ServerID: id, Address: "1.2.3.4", Status: "running", Spec: testSpec}, nil
		},
		delete: func(string) error { return nil },
		find: func(name string) (domain.ServerInfo, error) {
			return domain.ServerInfo{}, fmt.Errorf("find server %s: %w", name, domain.ErrNotFound)
		},
		create: func(domain.RecoverySpec) (domain.CreatedServer, error) {
			return domain.CreatedServer{ServerID: "srv-2", Address: "5.6.7.8", RootPassword: "hunter2"}, nil
		},
	}
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) count(prefix string) int {
	n := 0
	for _, c := range g.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (g *fakeGateway) Fetch(_ context.Context, id string) (domain.ServerInfo, error) {
	g.record("fetch " + id)
	return g.fetch(id)
}

func (g *fakeGateway) Delete(_ context.Context, id string) error {
	g.record("delete " + id)
	return g.delete(id)
}

func (g *fakeGateway) FindByName(_ context.Context, name string) (domain.ServerInfo, error) {
	g.record("find " + name)
	return g.find(name)
}

func (g *fakeGateway) Create(_ context.Context, spec domain.RecoverySpec) (domain.CreatedServer, error) {
	g.record("create " + spec.Name)
	g.mu.Lock()
	g.created = append(g.created, spec)
	g.mu.Unlock()
	return g.create(spec)
}

// fakeNotifier captures notification texts. Private texts are kept apart
// from the public ones.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	private  []string
	err      error
}

func (n *fakeNotifier) NotifyPrivate(_ context.Context, public, private string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, public)
	n.private = append(n.private, private)
	return n.err
}

func (n *fakeNotifier) Private() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.private...)
}

func (n *fakeNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

func (n *fakeNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// fakeEvents captures journal events
type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (e *fakeEvents) Emit(ev domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *fakeEvents) Types() []domain.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]domain.EventType, len(e.events))
	for i, ev := range e.events {
		types[i] = ev.Type
	}
	return types
}

func (e *fakeEvents) Has(typ domain.EventType) bool {
	for _, t := range e.Types() {
		if t == typ {
			return true
		}
	}
	return false
}

// scriptedProber returns outcomes in order, then the fallback forever
type scriptedProber struct {
	mu       sync.Mutex
	outcomes []domain.ProbeOutcome
	fallback domain.ProbeOutcome
	probed   []string
}

func (p *scriptedProber) Probe(_ context.Context, address string) domain.ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.probed = append(p.probed, address)
	outcome := p.fallback
	if len(p.outcomes) > 0 {
		outcome = p.outcomes[0]
		p.outcomes = p.outcomes[1:]
	}

	r := domain.ProbeResult{Outcome: outcome, Address: address}
	if outcome != domain.ProbeReachable {
		r.Err = fmt.Errorf("no reply from %s", address)
	}
	return r
}

func (p *scriptedProber) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}
