package query

import (
	"strings"

	"github.com/icza/cs2replay/entity"
	"github.com/icza/cs2replay/schema"
)

// buttonsFieldName is the raw network field this package reads to derive
// the synthetic per-button booleans of spec §6.
const buttonsFieldName = "m_pMovementServices.m_nButtonDownMaskPrev"

// findByClassSuffix returns the first live entity whose class name ends
// with suffix, used to locate the team and rules singleton entities that
// carry no stable handle of their own.
func findByClassSuffix(w *entity.World, suffix string) *entity.Slot {
	var found *entity.Slot
	w.Each(func(s *entity.Slot) {
		if found == nil && strings.HasSuffix(s.Class.Name, suffix) {
			found = s
		}
	})
	return found
}

// findTeam returns the live team entity whose m_iTeamNum equals teamNum.
func findTeam(w *entity.World, teamNum int64) *entity.Slot {
	var found *entity.Slot
	w.Each(func(s *entity.Slot) {
		if found != nil || !strings.HasSuffix(s.Class.Name, "Team") {
			return
		}
		if v, ok := s.ValueByName("m_iTeamNum"); ok && v.I64 == teamNum {
			found = s
		}
	})
	return found
}

// resolvePawn follows a controller's m_hPlayerPawn handle to its live
// entity, or nil if the controller has no pawn right now.
func resolvePawn(w *entity.World, controller *entity.Slot) *entity.Slot {
	h, ok := controller.ValueByName("m_hPlayerPawn")
	if !ok || h.Kind != schema.KindHandle || !h.Handle.Valid {
		return nil
	}
	return w.Slot(int32(h.Handle.Slot))
}

// resolveActiveWeapon follows a pawn's active-weapon handle to its live
// entity, or nil if unarmed.
func resolveActiveWeapon(w *entity.World, pawn *entity.Slot) *entity.Slot {
	h, ok := pawn.ValueByName("m_pWeaponServices.m_hActiveWeapon")
	if !ok || h.Kind != schema.KindHandle || !h.Handle.Valid {
		return nil
	}
	return w.Slot(int32(h.Handle.Slot))
}

// ResolveProp resolves one curated property name against controller,
// spec §4.H's lookup chain: synthetic buttons, derived values, pawn/
// weapon/team/rules traversal, then a direct FlatField on the controller
// itself. ok is false if no source ever carried the name.
func ResolveProp(w *entity.World, controller *entity.Slot, name string) (schema.Value, bool) {
	if b, ok := isButtonProp(name); ok {
		pawn := resolvePawn(w, controller)
		if pawn == nil {
			return schema.Value{}, false
		}
		mask, ok := pawn.ValueByName(buttonsFieldName)
		if !ok {
			return schema.Value{}, false
		}
		return decodeButton(mask, b), true
	}

	if v, ok := resolveDerived(w, controller, name); ok {
		return v, true
	}

	switch {
	case strings.HasPrefix(name, "pawn."):
		pawn := resolvePawn(w, controller)
		if pawn == nil {
			return schema.Value{}, false
		}
		return pawn.ValueByName(strings.TrimPrefix(name, "pawn."))

	case strings.HasPrefix(name, "weapon."):
		pawn := resolvePawn(w, controller)
		if pawn == nil {
			return schema.Value{}, false
		}
		weapon := resolveActiveWeapon(w, pawn)
		if weapon == nil {
			return schema.Value{}, false
		}
		return weapon.ValueByName(strings.TrimPrefix(name, "weapon."))

	case strings.HasPrefix(name, "team."):
		teamNum, ok := controller.ValueByName("m_iTeamNum")
		if !ok {
			return schema.Value{}, false
		}
		team := findTeam(w, teamNum.I64)
		if team == nil {
			return schema.Value{}, false
		}
		return team.ValueByName(strings.TrimPrefix(name, "team."))

	case strings.HasPrefix(name, "rules."):
		rules := findByClassSuffix(w, "GameRules")
		if rules == nil {
			return schema.Value{}, false
		}
		return rules.ValueByName(strings.TrimPrefix(name, "rules."))
	}

	return controller.ValueByName(name)
}

// resolveDerived computes the handful of values spec §4.H names that
// aren't a single FlatField: identity strings pulled off the controller,
// the server's running game clock, and per-team aggregate equipment
// value (grounded on original_source's util_dmg/kda_per_zone-style
// post-processing of otherwise-raw network fields).
func resolveDerived(w *entity.World, controller *entity.Slot, name string) (schema.Value, bool) {
	switch name {
	case "player_name":
		return controller.ValueByName("m_iszPlayerName")
	case "player_steamid":
		return controller.ValueByName("m_steamID")
	case "game_time":
		rules := findByClassSuffix(w, "GameRules")
		if rules == nil {
			return schema.Value{}, false
		}
		return rules.ValueByName("m_flGameTime")
	case "player_crosshair_code":
		pawn := resolvePawn(w, controller)
		if pawn == nil {
			return schema.Value{}, false
		}
		return pawn.ValueByName("m_iCrosshairCode")
	case "team_current_equip_value", "team_round_start_equip_value":
		teamNum, ok := controller.ValueByName("m_iTeamNum")
		if !ok {
			return schema.Value{}, false
		}
		team := findTeam(w, teamNum.I64)
		if team == nil {
			return schema.Value{}, false
		}
		field := "m_iTeamCurrentEquipmentValue"
		if name == "team_round_start_equip_value" {
			field = "m_iTeamRoundStartEquipmentValue"
		}
		return team.ValueByName(field)
	}
	return schema.Value{}, false
}
