package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"agency_os_backend/internal/auth/repository"
	"agency_os_backend/internal/events"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu       sync.Mutex
	profiles []repository.Profile
	// linkRace simulates another request linking the ghost first.
	linkRace bool
}

func (f *fakeRepo) GetByAuthUserID(_ context.Context, authUserID uuid.UUID) (repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.AuthUserID != nil && *p.AuthUserID == authUserID {
			return p, nil
		}
	}
	return repository.Profile{}, apperr.NotFound("profile not found")
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return repository.Profile{}, apperr.NotFound("profile not found")
}

func (f *fakeRepo) FindGhostByEmail(_ context.Context, email string) (repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.AuthUserID == nil && p.Email == email {
			return p, nil
		}
	}
	return repository.Profile{}, apperr.NotFound("profile not found")
}

func (f *fakeRepo) LinkGhost(_ context.Context, profileID, authUserID uuid.UUID) (repository.Profile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.profiles {
		if p.ID != profileID {
			continue
		}
		if f.linkRace {
			f.profiles[i].AuthUserID = &authUserID
			return repository.Profile{}, false, nil
		}
		if p.AuthUserID != nil {
			return repository.Profile{}, false, nil
		}
		f.profiles[i].AuthUserID = &authUserID
		return f.profiles[i], true, nil
	}
	return repository.Profile{}, false, nil
}

func (f *fakeRepo) Create(_ context.Context, authUserID uuid.UUID, email, displayName string) (repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == email {
			return repository.Profile{}, apperr.Conflict("a profile with this email already exists")
		}
	}
	p := repository.Profile{ID: uuid.New(), AuthUserID: &authUserID, Email: email, DisplayName: displayName, CreatedAt: time.Now()}
	f.profiles = append(f.profiles, p)
	return p, nil
}

func (f *fakeRepo) ListAssignments(context.Context, uuid.UUID) ([]repository.ClientAssignment, error) {
	return []repository.ClientAssignment{{ClientID: uuid.New(), ClientName: "Acme", Role: "strategist"}}, nil
}

type captureBus struct {
	mu     sync.Mutex
	linked []events.ProfileLinked
}

func (b *captureBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pl, ok := e.(events.ProfileLinked); ok {
		b.linked = append(b.linked, pl)
	}
}
func (b *captureBus) PublishSync(ctx context.Context, e events.Event) error { b.Publish(ctx, e); return nil }
func (b *captureBus) Subscribe(string, events.Handler)                       {}

func TestEnsureProfileLinksGhostCaseInsensitively(t *testing.T) {
	ghostID := uuid.New()
	repo := &fakeRepo{profiles: []repository.Profile{{ID: ghostID, Email: "jane@agency.io", DisplayName: "Jane", IsAdmin: true}}}
	bus := &captureBus{}
	svc := New(repo, bus, logger.Discard())
	authID := uuid.New()

	p, err := svc.EnsureProfile(context.Background(), authID, "  Jane@Agency.IO ")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if p.ID != ghostID || !p.IsAdmin {
		t.Fatalf("expected the ghost profile to be linked, got %+v", p)
	}
	if len(bus.linked) != 1 || !bus.linked[0].WasGhost {
		t.Fatalf("expected ProfileLinked with WasGhost, got %+v", bus.linked)
	}

	again, err := svc.EnsureProfile(context.Background(), authID, "jane@agency.io")
	if err != nil || again.ID != ghostID {
		t.Fatalf("second call should return the same profile, got %+v %v", again, err)
	}
	if len(bus.linked) != 1 {
		t.Fatalf("linking must not repeat, got %d events", len(bus.linked))
	}
}

func TestEnsureProfileCreatesFreshProfile(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, &captureBus{}, logger.Discard())

	p, err := svc.EnsureProfile(context.Background(), uuid.New(), "john.smith@agency.io")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if p.IsAdmin {
		t.Fatal("fresh profiles must not be admins")
	}
	if p.DisplayName != "John Smith" {
		t.Fatalf("display name = %q", p.DisplayName)
	}
}

func TestEnsureProfileHandlesLinkRace(t *testing.T) {
	ghostID := uuid.New()
	repo := &fakeRepo{linkRace: true, profiles: []repository.Profile{{ID: ghostID, Email: "a@b.co"}}}
	svc := New(repo, nil, logger.Discard())

	p, err := svc.EnsureProfile(context.Background(), uuid.New(), "a@b.co")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if p.ID != ghostID {
		t.Fatalf("expected concurrently linked profile, got %+v", p)
	}
}

func TestEnsureProfileRejectsEmailOwnedByOtherAccount(t *testing.T) {
	other := uuid.New()
	repo := &fakeRepo{profiles: []repository.Profile{{ID: uuid.New(), AuthUserID: &other, Email: "taken@agency.io"}}}
	svc := New(repo, nil, logger.Discard())

	_, err := svc.EnsureProfile(context.Background(), uuid.New(), "taken@agency.io")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestEnsureProfileRequiresEmail(t *testing.T) {
	svc := New(&fakeRepo{}, nil, logger.Discard())
	_, err := svc.EnsureProfile(context.Background(), uuid.New(), " ")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestGetMeIncludesClients(t *testing.T) {
	id := uuid.New()
	repo := &fakeRepo{profiles: []repository.Profile{{ID: id, Email: "x@y.z"}}}
	svc := New(repo, nil, logger.Discard())

	me, err := svc.GetMe(context.Background(), id)
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if len(me.Clients) != 1 || me.Clients[0].Name != "Acme" {
		t.Fatalf("unexpected clients %+v", me.Clients)
	}
}

func TestDisplayNameFromEmail(t *testing.T) {
	tests := map[string]string{
		"jane.doe@x.com":  "Jane Doe",
		"émile_zola@x.fr": "Émile Zola",
		"...@x.com":       "...@x.com",
	}
	for in, want := range tests {
		if got := displayNameFromEmail(in); got != want {
			t.Errorf("displayNameFromEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
