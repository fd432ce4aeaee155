package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/kasuganosora/dungeonfighter/cache"
	"github.com/kasuganosora/dungeonfighter/game/combat"
	"github.com/kasuganosora/dungeonfighter/game/narrative"
	"github.com/kasuganosora/dungeonfighter/model"
	"github.com/kasuganosora/dungeonfighter/plugin/hook"
	"github.com/kasuganosora/dungeonfighter/report"
)

// ErrRejected is returned when a battle.start hook interrupts the request.
var ErrRejected = errors.New("arena: battle rejected")

const (
	leaderboardKey = "leaderboard:wins"
	recentKey      = "battles:recent"

	defaultLinesTTL    = time.Hour
	defaultRecentLimit = 100
)

// ChannelKey is the pub/sub channel carrying a battle's events.
func ChannelKey(id string) string { return "battle:" + id }

// LinesKey is the replay list of a battle's events.
func LinesKey(id string) string { return "battle:" + id + ":lines" }

func reportKey(id string) string { return "battle:" + id + ":report" }

// EventType tags a streamed Event.
type EventType string

const (
	EventLine EventType = "line"
	EventEnd  EventType = "end"
)

// Event is one message on a battle channel. The end event carries the
// summary and the outcome.
type Event struct {
	Type    EventType    `json:"type"`
	Line    *combat.Line `json:"line,omitempty"`
	Summary string       `json:"summary,omitempty"`
	Outcome string       `json:"outcome,omitempty"`
}

// Deps groups the Service collaborators. Cache, PubSub, Hooks, Recorder and
// Store are optional.
type Deps struct {
	Builder  *Builder
	Cache    cache.Cache
	PubSub   cache.PubSub
	Hooks    *hook.HookCenter
	Recorder *report.Recorder
	Store    *report.Store
	Logger   *zap.Logger

	LinesTTL    time.Duration
	RecentLimit int
}

// Service runs battles for the API: it streams their lines, caches the
// report and hands it to the recorder.
type Service struct {
	Deps
	wg sync.WaitGroup

	mu     sync.Mutex
	active map[string]struct{}
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.LinesTTL <= 0 {
		d.LinesTTL = defaultLinesTTL
	}
	if d.RecentLimit <= 0 {
		d.RecentLimit = defaultRecentLimit
	}
	return &Service{Deps: d, active: make(map[string]struct{})}
}

// Fight runs one battle to the end and returns its report.
func (s *Service) Fight(ctx context.Context, req Request) (*model.BattleReport, error) {
	if err := s.Builder.Validate(&req); err != nil {
		return nil, err
	}
	return s.fight(ctx, uuid.NewString(), req)
}

// FightAsync validates req, starts the battle in the background and returns
// its ID. The battle outlives ctx cancellation.
func (s *Service) FightAsync(ctx context.Context, req Request) (string, error) {
	if err := s.Builder.Validate(&req); err != nil {
		return "", err
	}
	id := uuid.NewString()
	bg := context.WithoutCancel(ctx)
	// in flight as soon as the caller can see the ID
	s.begin(id)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.fight(bg, id, req); err != nil {
			s.Logger.Warn("async battle failed", zap.String("battle_id", id), zap.Error(err))
		}
	}()
	return id, nil
}

// Wait blocks until every FightAsync battle has finished.
func (s *Service) Wait() { s.wg.Wait() }

// InFlight reports whether battle id has been started and has not yet
// finished. A finished battle's report is cached before it leaves the set.
func (s *Service) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

func (s *Service) begin(id string) {
	s.mu.Lock()
	s.active[id] = struct{}{}
	s.mu.Unlock()
}

func (s *Service) end(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

func (s *Service) fight(ctx context.Context, id string, req Request) (*model.BattleReport, error) {
	s.begin(id)
	defer s.end(id)
	log := s.Logger.With(zap.String("battle_id", id), zap.String("trace_id", req.TraceID))

	if s.Hooks != nil {
		if _, err := s.Hooks.Trigger(ctx, hook.BattleStart, &req); errors.Is(err, hook.ErrInterrupt) {
			return nil, ErrRejected
		}
		// handlers may rewrite the request
		if err := s.Builder.Validate(&req); err != nil {
			return nil, err
		}
	}

	st := &streamer{svc: s, ctx: ctx, id: id, log: log}
	b, err := s.Builder.Build(ctx, req, st)
	if err != nil {
		return nil, err
	}
	b.Run()
	res := b.Result()

	rep := newReport(id, req, b, res, st.lines)
	st.publish(Event{Type: EventEnd, Summary: res.Summary, Outcome: string(res.Outcome)})
	s.finishStream(ctx, id, rep, log)

	if s.Hooks != nil {
		_, _ = s.Hooks.Trigger(ctx, hook.BattleEnd, rep)
	}
	if s.Recorder != nil {
		s.Recorder.Record(rep)
	}
	if s.Cache != nil {
		if rep.Outcome == model.OutcomePlayerWon {
			if _, err := s.Cache.ZIncrBy(ctx, leaderboardKey, 1, rep.PlayerName); err != nil {
				log.Warn("leaderboard update failed", zap.Error(err))
			}
		}
		if err := s.Cache.LPush(ctx, recentKey, id); err != nil {
			log.Warn("recent list update failed", zap.Error(err))
		}
	}
	return rep, nil
}

func (s *Service) finishStream(ctx context.Context, id string, rep *model.BattleReport, log *zap.Logger) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Expire(ctx, LinesKey(id), s.LinesTTL); err != nil && !cache.IsNotFound(err) {
		log.Warn("lines expire failed", zap.Error(err))
	}
	data, err := json.Marshal(rep)
	if err != nil {
		log.Error("report marshal failed", zap.Error(err))
		return
	}
	if err := s.Cache.Set(ctx, reportKey(id), string(data), s.LinesTTL); err != nil {
		log.Warn("report cache failed", zap.Error(err))
	}
}

func newReport(id string, req Request, b *Battle, res *combat.Result, lines []model.BattleLine) *model.BattleReport {
	rep := &model.BattleReport{
		ID:                  id,
		TraceID:             req.TraceID,
		PlayerName:          b.Player.Name(),
		Hero:                b.Hero.Name,
		Enemy:               b.Enemy.Name,
		Seed:                b.Seed,
		Outcome:             string(res.Outcome),
		PlayerSurvived:      res.PlayerSurvived,
		Turns:               res.Turns,
		Actions:             res.Actions,
		Iterations:          res.Iterations,
		NarrativeEventCount: res.NarrativeEventCount,
		PlayerDamage:        res.PlayerDamage,
		EnemyDamage:         res.EnemyDamage,
		PlayerCombos:        res.PlayerCombos,
		EnemyCombos:         res.EnemyCombos,
		PlayerHealth:        res.Player.Health,
		EnemyHealth:         res.Enemy.Health,
		Duration:            res.Duration,
		Summary:             res.Summary,
		CreatedAt:           time.Now(),
	}
	if b.Environment != nil {
		rep.Environment = b.Environment.Name
		rep.Location = b.Environment.Location
	}
	if res.Aborted != nil {
		rep.Aborted = res.Aborted.Error()
	}
	rep.Lines = datatypes.NewJSONType(lines)
	return rep
}

// streamer is the battle Sink: it keeps every line for the report and fans
// it out to the replay list and the battle channel.
type streamer struct {
	svc   *Service
	ctx   context.Context
	id    string
	log   *zap.Logger
	lines []model.BattleLine
}

func (st *streamer) Emit(l combat.Line) {
	st.lines = append(st.lines, model.BattleLine{
		Seq:     l.Seq,
		Kind:    string(l.Kind),
		Text:    l.Text,
		Trigger: string(l.Trigger),
		Time:    l.Time,
		Turn:    l.Turn,
	})
	st.publish(Event{Type: EventLine, Line: &l})
}

func (st *streamer) publish(evt Event) {
	if st.svc.Cache == nil && st.svc.PubSub == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		st.log.Error("event marshal failed", zap.Error(err))
		return
	}
	if st.svc.Cache != nil {
		if err := st.svc.Cache.RPush(st.ctx, LinesKey(st.id), string(data)); err != nil {
			st.log.Warn("replay append failed", zap.Error(err))
		}
	}
	if st.svc.PubSub != nil {
		if err := st.svc.PubSub.Publish(st.ctx, ChannelKey(st.id), string(data)); err != nil {
			st.log.Warn("publish failed", zap.Error(err))
		}
	}
}

// ---- Queries ----

// Lookup returns a battle report, from the cache while it is hot and from
// the store afterwards.
func (s *Service) Lookup(ctx context.Context, id string) (*model.BattleReport, error) {
	if s.Cache != nil {
		if data, err := s.Cache.Get(ctx, reportKey(id)); err == nil {
			var rep model.BattleReport
			if err := json.Unmarshal([]byte(data), &rep); err == nil {
				return &rep, nil
			}
		}
	}
	if s.Store == nil {
		return nil, report.ErrNotFound
	}
	return s.Store.Get(ctx, id)
}

// Recent returns the newest battles without their lines.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.BattleReport, error) {
	if limit <= 0 || limit > s.RecentLimit {
		limit = min(20, s.RecentLimit)
	}
	if s.Cache != nil {
		ids, err := s.Cache.LRange(ctx, recentKey, 0, int64(limit-1))
		if err == nil && len(ids) > 0 {
			out := make([]model.BattleReport, 0, len(ids))
			for _, id := range ids {
				rep, err := s.Lookup(ctx, id)
				if err != nil {
					continue
				}
				rep.Lines = datatypes.NewJSONType[[]model.BattleLine](nil)
				out = append(out, *rep)
			}
			return out, nil
		}
	}
	if s.Store == nil {
		return nil, nil
	}
	return s.Store.Recent(ctx, limit)
}

// Leaderboard returns the players with the most wins. The ZSet is rebuilt
// from the store when it is empty.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]report.Standing, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if s.Cache != nil {
		members, err := s.Cache.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1))
		if err == nil && len(members) > 0 {
			out := make([]report.Standing, len(members))
			for i, m := range members {
				out[i] = report.Standing{Name: m.Member, Wins: int64(m.Score)}
			}
			return out, nil
		}
	}
	if s.Store == nil {
		return nil, nil
	}
	rows, err := s.Store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("arena: leaderboard: %w", err)
	}
	if s.Cache != nil {
		for _, r := range rows {
			_ = s.Cache.ZAdd(ctx, leaderboardKey, float64(r.Wins), r.Name)
		}
	}
	return rows, nil
}

// Replay returns the stored events of a battle, oldest first.
func (s *Service) Replay(ctx context.Context, id string) ([]Event, error) {
	if s.Cache == nil {
		return nil, nil
	}
	raw, err := s.Cache.LRange(ctx, LinesKey(id), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, r := range raw {
		var evt Event
		if err := json.Unmarshal([]byte(r), &evt); err != nil {
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}

// ReportEvents rebuilds the event stream of a finished battle from its
// report, for replays whose cached list has expired.
func ReportEvents(rep *model.BattleReport) []Event {
	lines := rep.Lines.Data()
	out := make([]Event, 0, len(lines)+1)
	for _, l := range lines {
		out = append(out, Event{Type: EventLine, Line: &combat.Line{
			Seq:     l.Seq,
			Kind:    combat.LineKind(l.Kind),
			Text:    l.Text,
			Trigger: narrative.Kind(l.Trigger),
			Time:    l.Time,
			Turn:    l.Turn,
		}})
	}
	return append(out, Event{Type: EventEnd, Summary: rep.Summary, Outcome: rep.Outcome})
}

// Watch subscribes to a battle's channel. Payloads that do not decode are
// dropped. Call cancel to unsubscribe.
func (s *Service) Watch(ctx context.Context, id string) (<-chan Event, func(), error) {
	if s.PubSub == nil {
		return nil, nil, errors.New("arena: no pubsub configured")
	}
	msgs, unsub, err := s.PubSub.Subscribe(ctx, ChannelKey(id))
	if err != nil {
		return nil, nil, err
	}
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for {
			var msg *cache.Message
			var ok bool
			select {
			case msg, ok = <-msgs:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, unsub, nil
}

// TrimRecent caps the recent-battle list at RecentLimit.
func (s *Service) TrimRecent(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.LTrim(ctx, recentKey, 0, int64(s.RecentLimit-1))
}
