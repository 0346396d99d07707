package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/darkodi/link-shortener/internal/clock"
	"github.com/darkodi/link-shortener/internal/duration"
	"github.com/darkodi/link-shortener/internal/eviction"
	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/model"
	"github.com/darkodi/link-shortener/internal/reachability"
	"github.com/darkodi/link-shortener/internal/store"
	"github.com/darkodi/link-shortener/internal/token"
)

// Custom errors for the service layer
var (
	ErrInvalidName     = errors.New("name must be non-empty and contain letters only")
	ErrUnreachableURL  = errors.New("destination URL is not reachable")
	ErrInvalidDuration = errors.New("duration must be positive, e.g. \"1d 2h 30m\"")
	ErrNotFound        = errors.New("short link not found or no longer active")
	ErrNotOwned        = errors.New("short link belongs to another user")
	ErrAlreadyExpired  = errors.New("new expiry is not in the future")
	ErrUserNotFound    = errors.New("user not found")
)

// maxTokenAttempts bounds regeneration after token collisions
const maxTokenAttempts = 5

// Policy holds the lifetime cap and visit floor applied to every link
type Policy struct {
	MaxLifetime time.Duration // longer durations are silently capped
	VisitFloor  int           // smaller visit limits are silently raised
}

// DefaultPolicy returns the stock limits: 24h lifetime, at least 5 visits
func DefaultPolicy() Policy {
	return Policy{
		MaxLifetime: 24 * time.Hour,
		VisitFloor:  5,
	}
}

// Sweeper runs an eviction pass
type Sweeper interface {
	Sweep(ctx context.Context) []eviction.Notification
}

// LinkService handles business logic for link operations
type LinkService struct {
	store   *store.Store
	sweeper Sweeper
	tokens  token.Generator
	checker reachability.Checker
	clock   clock.Clock
	policy  Policy
	baseURL string // e.g., "http://localhost:8080/"
	log     *logger.Logger
}

// Options wires the collaborators of a LinkService
type Options struct {
	Store   *store.Store
	Sweeper Sweeper
	Tokens  token.Generator
	Checker reachability.Checker
	Clock   clock.Clock
	Policy  Policy
	BaseURL string
	Logger  *logger.Logger
}

// NewLinkService creates a new service instance
func NewLinkService(opts Options) *LinkService {
	svc := &LinkService{
		store:   opts.Store,
		sweeper: opts.Sweeper,
		tokens:  opts.Tokens,
		checker: opts.Checker,
		clock:   opts.Clock,
		policy:  opts.Policy,
		baseURL: normalizeBaseURL(opts.BaseURL),
		log:     opts.Logger,
	}

	if svc.clock == nil {
		svc.clock = clock.System{}
	}
	if svc.log == nil {
		svc.log = logger.Nop()
	}
	if svc.tokens == nil {
		svc.tokens = token.NewRandomGenerator()
	}
	if svc.checker == nil {
		svc.checker = reachability.NewHTTPChecker(reachability.DefaultTimeout, svc.log)
	}
	if svc.sweeper == nil {
		svc.sweeper = eviction.NewEngine(svc.store, svc.clock, eviction.NewLogNotifier(svc.log), svc.log)
	}
	if svc.policy.MaxLifetime <= 0 {
		svc.policy.MaxLifetime = DefaultPolicy().MaxLifetime
	}
	return svc
}

// BaseURL returns the prefix of every short URL
func (s *LinkService) BaseURL() string {
	return s.baseURL
}

// ShortURL builds the full short URL for token
func (s *LinkService) ShortURL(tok string) string {
	return s.baseURL + tok
}

// ============ USERS ============

// Authenticate resumes the user called name or creates them. created reports
// which of the two happened.
func (s *LinkService) Authenticate(ctx context.Context, name string) (model.User, bool, error) {
	if !isValidName(name) {
		return model.User{}, false, ErrInvalidName
	}

	if u, ok := s.store.FindUserByName(name); ok {
		return u, false, nil
	}

	u, err := s.store.CreateUser(ctx, name)
	if errors.Is(err, store.ErrUserExists) {
		// lost a race with a concurrent login under the same name
		if u, ok := s.store.FindUserByName(name); ok {
			return u, false, nil
		}
	}
	if err != nil {
		return model.User{}, false, err
	}

	s.log.Info("user created", "user_id", u.ID, "name", u.Name)
	return u, true, nil
}

// User returns the user with the given id
func (s *LinkService) User(ctx context.Context, id string) (model.User, error) {
	u, ok := s.store.FindUserByID(id)
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

// ============ LINKS ============

// CreateLink stores a new short link for ownerID and returns its short URL
func (s *LinkService) CreateLink(ctx context.Context, ownerID, destination, durationText string, visitLimit *int) (*model.CreateLinkResponse, error) {
	// ============ STEP 1: Owner ============
	if _, ok := s.store.FindUserByID(ownerID); !ok {
		return nil, ErrUserNotFound
	}

	// ============ STEP 2: Validation ============
	destination = strings.TrimSpace(destination)
	if destination == "" || !s.checker.IsReachable(ctx, destination) {
		return nil, ErrUnreachableURL
	}

	parsed := duration.Parse(durationText)
	if !parsed.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, durationText)
	}

	now := s.clock.Now().UTC()
	link := model.Link{
		Destination:     destination,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.capLifetime(parsed.Total)),
		RemainingVisits: s.floorVisits(visitLimit),
	}

	// ============ STEP 3: Insert with a fresh token ============
	var err error
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		link.Token = s.tokens.Generate()
		err = s.store.InsertLink(ctx, ownerID, link)
		if !errors.Is(err, store.ErrTokenCollision) {
			break
		}
		s.log.Debug("token collision, regenerating", "token", link.Token, "attempt", attempt)
	}
	if errors.Is(err, store.ErrUnknownOwner) {
		return nil, ErrUserNotFound
	}
	if errors.Is(err, store.ErrTokenCollision) {
		return nil, fmt.Errorf("no free token after %d attempts", maxTokenAttempts)
	}
	if err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}

	s.log.Info("link created",
		"token", link.Token,
		"owner_id", ownerID,
		"expires_at", link.ExpiresAt,
	)

	// ============ STEP 4: Build response ============
	resp := &model.CreateLinkResponse{
		ShortURL:        s.ShortURL(link.Token),
		Token:           link.Token,
		Destination:     link.Destination,
		ExpiresAt:       link.ExpiresAt,
		RemainingVisits: link.RemainingVisits,
	}
	for _, w := range parsed.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp, nil
}

// Resolve returns the destination for a token or full short URL and spends
// one visit of its quota. The liveness check and the decrement happen under
// the same store lock, so the last visit is never handed out twice.
func (s *LinkService) Resolve(ctx context.Context, tokenOrURL string) (string, error) {
	tok := s.TokenFrom(tokenOrURL)
	if tok == "" {
		return "", ErrNotFound
	}

	s.sweeper.Sweep(ctx)

	link, err := s.store.UpdateLink(ctx, tok, func(_ string, cur model.Link) (model.Link, error) {
		if !cur.IsLive(s.clock.Now()) {
			return model.Link{}, ErrNotFound
		}
		if cur.RemainingVisits != nil {
			*cur.RemainingVisits--
		}
		cur.VisitCount++
		return cur, nil
	})
	if errors.Is(err, store.ErrLinkNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return link.Destination, nil
}

// EditLink replaces any of destination, lifetime and visit limit. Every
// supplied field is validated before anything is written.
func (s *LinkService) EditLink(ctx context.Context, ownerID, tok string, req model.EditLinkRequest) (model.Link, error) {
	tok = s.TokenFrom(tok)
	s.sweeper.Sweep(ctx)

	current, err := s.ownedLiveLink(ownerID, tok)
	if err != nil {
		return model.Link{}, err
	}

	// ============ STEP 1: Validate every supplied field ============
	var newDest string
	if req.Destination != nil {
		newDest = strings.TrimSpace(*req.Destination)
		if newDest != current.Destination && (newDest == "" || !s.checker.IsReachable(ctx, newDest)) {
			return model.Link{}, ErrUnreachableURL
		}
	}

	var newExpiry time.Time
	if req.Duration != nil {
		parsed := duration.Parse(*req.Duration)
		now := s.clock.Now().UTC()
		newExpiry = now.Add(s.capLifetime(parsed.Total))
		if !newExpiry.After(now) {
			return model.Link{}, ErrAlreadyExpired
		}
	}

	var newVisits *int
	if req.VisitLimit != nil {
		newVisits = s.floorVisits(req.VisitLimit)
	}

	// ============ STEP 2: Commit atomically ============
	updated, err := s.store.UpdateLink(ctx, tok, func(owner string, cur model.Link) (model.Link, error) {
		if owner != ownerID {
			return model.Link{}, ErrNotOwned
		}
		if !cur.IsLive(s.clock.Now()) {
			return model.Link{}, ErrNotFound
		}
		if req.Destination != nil {
			cur.Destination = newDest
		}
		if req.Duration != nil {
			cur.ExpiresAt = newExpiry
		}
		if newVisits != nil {
			cur.RemainingVisits = newVisits
		}
		return cur, nil
	})
	if errors.Is(err, store.ErrLinkNotFound) {
		return model.Link{}, ErrNotFound
	}
	if err != nil {
		return model.Link{}, err
	}

	s.log.Info("link edited", "token", tok, "owner_id", ownerID)
	return updated, nil
}

// DeleteLink removes tok if ownerID owns it
func (s *LinkService) DeleteLink(ctx context.Context, ownerID, tok string) bool {
	removed := s.store.RemoveLink(ctx, ownerID, s.TokenFrom(tok))
	if removed {
		s.log.Info("link deleted", "token", tok, "owner_id", ownerID)
	}
	return removed
}

// ListLinks returns the owner's live links ordered by destination
func (s *LinkService) ListLinks(ctx context.Context, ownerID string) ([]model.Link, error) {
	if _, ok := s.store.FindUserByID(ownerID); !ok {
		return nil, ErrUserNotFound
	}

	s.sweeper.Sweep(ctx)
	return s.store.LinksOf(ownerID), nil
}

// GetLink returns one live link for its owner without spending a visit
func (s *LinkService) GetLink(ctx context.Context, ownerID, tok string) (model.Link, error) {
	return s.ownedLiveLink(ownerID, s.TokenFrom(tok))
}

// ToResponse converts a link to its display form
func (s *LinkService) ToResponse(l model.Link) model.LinkResponse {
	remaining := l.ExpiresAt.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return model.LinkResponse{
		Token:           l.Token,
		ShortURL:        s.ShortURL(l.Token),
		Destination:     l.Destination,
		CreatedAt:       l.CreatedAt,
		ExpiresAt:       l.ExpiresAt,
		ExpiresIn:       duration.Format(remaining),
		RemainingVisits: l.RemainingVisits,
		VisitCount:      l.VisitCount,
	}
}

// TokenFrom accepts either a bare token or a full short URL
func (s *LinkService) TokenFrom(input string) string {
	input = strings.TrimSpace(input)
	if rest, ok := strings.CutPrefix(input, s.baseURL); ok && s.baseURL != "" {
		return rest
	}
	if i := strings.LastIndexByte(input, '/'); i >= 0 {
		return input[i+1:]
	}
	return input
}

// ============ HELPERS ============

func (s *LinkService) ownedLiveLink(ownerID, tok string) (model.Link, error) {
	owner, link, ok := s.store.FindLinkByToken(tok)
	if !ok || !link.IsLive(s.clock.Now()) {
		return model.Link{}, ErrNotFound
	}
	if owner != ownerID {
		return model.Link{}, ErrNotOwned
	}
	return link, nil
}

func (s *LinkService) capLifetime(d time.Duration) time.Duration {
	if d > s.policy.MaxLifetime {
		return s.policy.MaxLifetime
	}
	return d
}

func (s *LinkService) floorVisits(limit *int) *int {
	if limit == nil {
		return nil
	}
	v := max(*limit, s.policy.VisitFloor, 1)
	return &v
}

func isValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/"
}
