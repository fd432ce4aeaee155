package narrative

import (
	"github.com/kasuganosora/dungeonfighter/game/battle"
)

// Health is a pair of health values, one per side.
type Health struct {
	Player int
	Enemy  int
}

// Config identifies the battle an evaluator narrates.
type Config struct {
	PlayerName string
	EnemyName  string
	Location   string
	Text       TextProvider // nil = built-in table
}

// TriggerEvaluator turns battle events into narrative lines. It owns the
// battle's State and is not safe for concurrent use.
type TriggerEvaluator struct {
	cfg    Config
	state  *State
	taunts TauntSelector
}

func NewTriggerEvaluator(cfg Config) *TriggerEvaluator {
	if cfg.Text == nil {
		cfg.Text = NewTable(nil)
	}
	return &TriggerEvaluator{
		cfg:    cfg,
		state:  NewState(),
		taunts: TauntSelector{Text: cfg.Text},
	}
}

// State exposes the tracker for inspection and for the cooldown clear.
func (e *TriggerEvaluator) State() *State { return e.state }

// Reset starts a fresh battle.
func (e *TriggerEvaluator) Reset() { e.state = NewState() }

// Analyze returns the narrative text produced by one event.
func (e *TriggerEvaluator) Analyze(evt battle.BattleEvent, initial, current Health, s Settings) []string {
	lines := e.AnalyzeLines(evt, initial, current, s)
	if lines == nil {
		return nil
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// AnalyzeLines runs every trigger against evt in a fixed order. A single
// event may fire several triggers. With narrative disabled it returns nil
// and leaves the state untouched.
func (e *TriggerEvaluator) AnalyzeLines(evt battle.BattleEvent, initial, current Health, s Settings) []Line {
	if !s.EnableNarrativeEvents {
		return nil
	}
	a := analysis{e: e, evt: evt, initial: initial, current: current, balance: s.Balance()}

	a.firstBlood()
	a.criticalHit()
	a.criticalMiss()
	a.environmental()
	a.healthRecovery()
	a.leadChange()
	a.taunts()
	a.thresholds()
	a.intenseBattle()
	a.goodCombo()
	a.defeat()

	return a.lines
}

// analysis is the scratch state of one Analyze call.
type analysis struct {
	e       *TriggerEvaluator
	evt     battle.BattleEvent
	initial Health
	current Health
	balance float64
	lines   []Line
}

func (a *analysis) fire(kind Kind, subject, text string) {
	a.lines = append(a.lines, Line{Kind: kind, Text: text, Subject: subject})
	a.e.state.NarrativeEventCount++
}

func (a *analysis) text(kind Kind, repl map[string]string) string {
	return Fill(a.e.cfg.Text.Narrative(string(kind)), repl)
}

func (a *analysis) firstBlood() {
	st := a.e.state
	if st.FirstBlood || a.evt.Damage <= 0 || !a.evt.Success {
		return
	}
	st.FirstBlood = true
	a.fire(KindFirstBlood, a.evt.Actor, a.text(KindFirstBlood, nil))
}

// criticalHit is rate limited: after it fires, the next eligible critical
// is swallowed and clears the cooldown, unless the game loop clears it first.
func (a *analysis) criticalHit() {
	if !a.evt.Critical || !a.evt.Success {
		return
	}
	st := a.e.state
	if st.RecentCriticalHitNarrative {
		st.RecentCriticalHitNarrative = false
		return
	}
	if a.balance < 0.7 && a.evt.Roll < 18 {
		return
	}
	st.RecentCriticalHitNarrative = true
	a.fire(KindCriticalHit, a.evt.Actor, a.text(KindCriticalHit, map[string]string{"name": a.evt.Actor}))
}

func (a *analysis) criticalMiss() {
	if a.evt.Success || a.evt.Roll != 1 {
		return
	}
	a.fire(KindCriticalMiss, a.evt.Actor, a.text(KindCriticalMiss, map[string]string{"name": a.evt.Actor}))
}

func (a *analysis) environmental() {
	st := a.e.state
	if a.evt.EnvironmentEffect == "" || st.EnvironmentalAction {
		return
	}
	st.EnvironmentalAction = true
	a.fire(KindEnvironmentalAction, a.evt.Actor,
		a.text(KindEnvironmentalAction, map[string]string{"effect": a.evt.EnvironmentEffect}))
}

func (a *analysis) healthRecovery() {
	if !a.evt.IsHeal || a.evt.HealAmount <= 0 {
		return
	}
	a.fire(KindHealthRecovery, a.evt.Target, a.text(KindHealthRecovery, map[string]string{"name": a.evt.Target}))
}

func (a *analysis) leadChange() {
	if a.evt.Damage < 3 {
		return
	}
	st := a.e.state
	var name string
	leader := LeaderNone
	switch {
	case a.current.Player > a.current.Enemy:
		leader, name = LeaderPlayer, a.e.cfg.PlayerName
	case a.current.Enemy > a.current.Player:
		leader, name = LeaderEnemy, a.e.cfg.EnemyName
	}
	if leader == LeaderNone || leader == st.Leader {
		return
	}
	st.Leader = leader
	a.fire(KindHealthLeadChange, name, a.text(KindHealthLeadChange, map[string]string{"name": name}))
}

// taunts counts the action for its side before checking the schedule.
func (a *analysis) taunts() {
	st := a.e.state
	cfg := a.e.cfg
	switch a.evt.ActorSide {
	case battle.SidePlayer:
		st.PlayerActionCount++
		if st.CanPlayerTaunt() && TauntDue(RolePlayer, st.PlayerActionCount, st.PlayerTauntCount, a.balance) {
			st.PlayerTauntCount++
			a.fire(KindPlayerTaunt, cfg.PlayerName,
				a.e.taunts.Select(cfg.Location, RolePlayer, cfg.PlayerName, cfg.EnemyName))
		}
	case battle.SideEnemy:
		st.EnemyActionCount++
		if st.CanEnemyTaunt() && TauntDue(RoleEnemy, st.EnemyActionCount, st.EnemyTauntCount, a.balance) {
			st.EnemyTauntCount++
			a.fire(KindEnemyTaunt, cfg.EnemyName,
				a.e.taunts.Select(cfg.Location, RoleEnemy, cfg.EnemyName, cfg.PlayerName))
		}
	}
}

func ratio(cur, initial int) (float64, bool) {
	if initial <= 0 {
		return 0, false
	}
	return float64(cur) / float64(initial), true
}

// thresholds fires only while the side is alive; reaching zero is a defeat.
func (a *analysis) thresholds() {
	st := a.e.state
	pr, pok := ratio(a.current.Player, a.initial.Player)
	er, eok := ratio(a.current.Enemy, a.initial.Enemy)
	pAlive, eAlive := a.current.Player > 0, a.current.Enemy > 0
	player, enemy := a.e.cfg.PlayerName, a.e.cfg.EnemyName

	if !st.PlayerBelow50 && pok && pr < 0.5 && pAlive {
		st.PlayerBelow50 = true
		a.fire(KindBelow50Percent, player, a.text(KindBelow50Percent, map[string]string{"name": player}))
	}
	if !st.EnemyBelow50 && eok && er < 0.5 && eAlive {
		st.EnemyBelow50 = true
		a.fire(KindBelow50Percent, enemy, a.text(KindBelow50Percent, map[string]string{"name": enemy}))
	}
	if !st.PlayerBelow10 && pok && pr < 0.1 && pAlive {
		st.PlayerBelow10 = true
		a.fire(KindBelow10Percent, player, a.text(KindBelow10Percent, map[string]string{"name": player}))
	}
	if !st.EnemyBelow10 && eok && er < 0.1 && eAlive {
		st.EnemyBelow10 = true
		a.fire(KindBelow10Percent, enemy, a.text(KindBelow10Percent, map[string]string{"name": enemy}))
	}
}

func (a *analysis) intenseBattle() {
	st := a.e.state
	if st.IntenseBattle {
		return
	}
	pr, pok := ratio(a.current.Player, a.initial.Player)
	er, eok := ratio(a.current.Enemy, a.initial.Enemy)
	if !pok || !eok || pr >= 0.5 || er >= 0.5 || a.current.Player <= 0 || a.current.Enemy <= 0 {
		return
	}
	st.IntenseBattle = true
	a.fire(KindIntenseBattle, "", a.text(KindIntenseBattle, map[string]string{
		"player": a.e.cfg.PlayerName,
		"enemy":  a.e.cfg.EnemyName,
	}))
}

func (a *analysis) goodCombo() {
	st := a.e.state
	if st.GoodCombo || !a.evt.IsCombo || a.evt.ComboStep < 2 {
		return
	}
	st.GoodCombo = true
	tmpl := enemyGoodComboText
	if a.evt.ActorSide == battle.SidePlayer {
		tmpl = playerGoodComboText
	}
	a.fire(KindGoodCombo, a.evt.Actor, Fill(tmpl, map[string]string{
		"player": a.e.cfg.PlayerName,
		"enemy":  a.e.cfg.EnemyName,
	}))
}

// defeat reads the tracked health, not the event's own snapshots.
func (a *analysis) defeat() {
	st := a.e.state
	player, enemy := a.e.cfg.PlayerName, a.e.cfg.EnemyName
	if !st.PlayerDefeated && a.current.Player <= 0 {
		st.PlayerDefeated = true
		a.fire(KindPlayerDefeated, player, a.text(KindPlayerDefeated, map[string]string{"enemy": enemy}))
	}
	if !st.EnemyDefeated && a.current.Enemy <= 0 {
		st.EnemyDefeated = true
		a.fire(KindEnemyDefeated, enemy, a.text(KindEnemyDefeated, map[string]string{"name": enemy, "player": player}))
	}
}
