package confignode

import (
	"strconv"
	"strings"

	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/spawn"
)

// Round-scoped nodes.
var (
	MaxPlayers            = declare("max_players", ScopeRound, 32, parsePositiveInt)
	AllowTeleport         = declare("allow_teleport", ScopeRound, true, strconv.ParseBool)
	AllowDamage           = declare("allow_damage", ScopeRound, true, strconv.ParseBool)
	AllowFriendlyFire     = declare("allow_friendly_fire", ScopeRound, false, strconv.ParseBool)
	SeparateTeamChats     = declare("separate_team_chats", ScopeRound, false, strconv.ParseBool)
	SeparateRoundChats    = declare("separate_round_chats", ScopeRound, false, strconv.ParseBool)
	RollbackOnEnd         = declare("rollback_on_end", ScopeRound, true, strconv.ParseBool)
	SpawningMode          = declare("spawning_mode", ScopeRound, spawn.Sequential, spawn.ParseMode)
	ForbiddenCommands     = declare("forbidden_commands", ScopeRound, []string(nil), parseList)
	RelocateOnLeave       = declare("relocate_on_leave", ScopeRound, true, strconv.ParseBool)
	EndOnFinalStageExpiry = declare("end_on_final_stage_expiry", ScopeRound, true, strconv.ParseBool)
)

// Minigame-scoped nodes.
var (
	DefaultLifecycleStages = declare("default_lifecycle_stages", ScopeMinigame,
		[]lifecycle.Stage{{ID: "default", Duration: lifecycle.Untimed}}, lifecycle.ParseStages)
	RollbackCaptureLimit = declare("rollback_capture_limit", ScopeMinigame, int64(1<<20), parseNonNegativeInt64)
)

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func parseNonNegativeInt64(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func parseList(s string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
