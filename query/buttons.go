package query

import "github.com/icza/cs2replay/schema"

// Button bit indices of m_pMovementServices' button mask (spec §6): each
// is one bit of the synthetic per-tick boolean columns the buttons table
// expands into.
const (
	ButtonAttack Button = iota
	ButtonJump
	ButtonDuck
	ButtonForward
	ButtonBack
	ButtonUse
	ButtonCancel
	ButtonLeft
	ButtonRight
	ButtonMoveLeft
	ButtonMoveRight
	ButtonAttack2
	_reserved12
	ButtonReload
	ButtonAlt1
	ButtonAlt2
	ButtonSpeed
	ButtonWalk
	ButtonZoom
	ButtonWeapon1
	ButtonWeapon2
	ButtonBullRush
	ButtonGrenade1
	ButtonGrenade2
	ButtonAttack3
	_reserved25
	_reserved26
	_reserved27
	_reserved28
	_reserved29
	_reserved30
	_reserved31
	_reserved32
	ButtonScore
	_reserved34
	ButtonInspect
)

// Button is one bit position of the button mask.
type Button int

// buttonNames maps the synthetic boolean column names spec §6 lists to
// their bit index.
var buttonNames = map[string]Button{
	"FORWARD":     ButtonForward,
	"BACK":        ButtonBack,
	"LEFT":        ButtonMoveLeft,
	"RIGHT":       ButtonMoveRight,
	"FIRE":        ButtonAttack,
	"RIGHTCLICK":  ButtonAttack2,
	"RELOAD":      ButtonReload,
	"INSPECT":     ButtonInspect,
	"USE":         ButtonUse,
	"ZOOM":        ButtonZoom,
	"SCOREBOARD":  ButtonScore,
	"WALK":        ButtonWalk,
}

// isButtonProp reports whether name is one of the synthetic button
// booleans, and returns its bit index.
func isButtonProp(name string) (Button, bool) {
	b, ok := buttonNames[name]
	return b, ok
}

// decodeButton extracts bit b out of a raw button mask value.
func decodeButton(mask schema.Value, b Button) schema.Value {
	u, _ := mask.AsFloat64()
	return schema.BoolValue(uint64(u)&(1<<uint(b)) != 0)
}
