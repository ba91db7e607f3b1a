// Package observerproto is the wire format of the observer stream: a
// read-mostly view of the arena pushed every few ticks.
package observerproto

import (
	"dragonpot.game/internal/protocol"
	"dragonpot.game/internal/sim/notice"
	"dragonpot.game/internal/sim/recipe"
	"dragonpot.game/internal/sim/round"
)

// Version is the observer protocol version (separate from the player action protocol).
const Version = "0.2"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "TICK"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryTicks thins the stream; 0 uses the server default.
	EveryTicks int `json:"every_ticks,omitempty"`
	// Events asks for game events and action records in tick messages.
	Events bool `json:"events,omitempty"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string          `json:"protocol_version"`
	WorldID         string          `json:"world_id"`
	Tick            uint64          `json:"tick"`
	WorldParams     WorldParams     `json:"world_params"`
	Catalogs        CatalogDigests  `json:"catalogs"`
	Recipes         []recipe.Recipe `json:"recipes"`
	RecipesFallback bool            `json:"recipes_fallback,omitempty"`
}

type WorldParams struct {
	TickRateHz  int     `json:"tick_rate_hz"`
	Seed        int64   `json:"seed"`
	TimeLimit   float64 `json:"time_limit"`
	PlayerCarry int     `json:"player_carry"`
	PlayerReach float64 `json:"player_reach"`
}

type CatalogDigests struct {
	Recipes string `json:"recipes_digest"`
	Crops   string `json:"crops_digest"`
	Layout  string `json:"layout_digest"`
}

// Server -> Client.
type TickMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	RoundID         string      `json:"round_id"`
	Round           round.State `json:"round"`

	Station StationState `json:"station"`
	Player  PlayerState  `json:"player"`
	NPCs    []NPCState   `json:"npcs"`
	Plants  []PlantState `json:"plants"`
	Items   []ItemState  `json:"items"`
	Zones   []ZoneState  `json:"zones"`
	Notice  *notice.View `json:"notice,omitempty"`

	Events  []GameEvent      `json:"events,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
}

type RecordedAction struct {
	PlayerID string          `json:"player_id"`
	Act      protocol.ActMsg `json:"act"`
}

type StationState struct {
	ID  string     `json:"id"`
	Pos [3]float64 `json:"pos"`
	// Recipe is omitted while the dragon has forgotten what it wanted.
	Recipe    *recipe.Recipe `json:"recipe,omitempty"`
	Progress  float64        `json:"progress"`
	Bonus     float64        `json:"bonus"`
	Completed int            `json:"completed"`
	Swaps     int            `json:"swaps"`
}

type PlayerState struct {
	ID         string     `json:"id"`
	Pos        [3]float64 `json:"pos"`
	Carried    []string   `json:"carried"`
	Harvesting string     `json:"harvesting,omitempty"`
}

type NPCState struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	State    string      `json:"state"`
	Pos      [3]float64  `json:"pos"`
	Carried  []string    `json:"carried"`
	Zone     string      `json:"zone,omitempty"`
	WorkArea *[3]float64 `json:"work_area,omitempty"`
	Target   string      `json:"target,omitempty"`
	Held     bool        `json:"held,omitempty"`
	Airborne bool        `json:"airborne,omitempty"`
	Harvest  float64     `json:"harvest_progress,omitempty"`

	Harvested int `json:"harvested"`
	Delivered int `json:"delivered"`
	Wasted    int `json:"wasted"`
}

type PlantState struct {
	ID         string     `json:"id"`
	Crop       string     `json:"crop"`
	Pos        [3]float64 `json:"pos"`
	State      string     `json:"state"`
	Harvester  string     `json:"harvester,omitempty"`
	Progress   float64    `json:"progress"`
	RegrowLeft float64    `json:"regrow_left,omitempty"`
}

type ItemState struct {
	ID      string     `json:"id"`
	Crop    string     `json:"crop"`
	Pos     [3]float64 `json:"pos"`
	Carrier string     `json:"carrier,omitempty"`
	TTL     float64    `json:"ttl"`
}

type ZoneState struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Crop   string     `json:"crop"`
	Center [3]float64 `json:"center"`
	Radius float64    `json:"radius"`
	Worker string     `json:"worker,omitempty"`
}

// Game event types.
const (
	EventRoundStarted    = "round_started"
	EventRecipeAssigned  = "recipe_assigned"
	EventIngredientAdded = "ingredient_added"
	EventRecipeCompleted = "recipe_completed"
	EventRecipeSwapped   = "recipe_swapped"
	EventPlantHarvested  = "plant_harvested"
	EventNotice          = "notice"
	EventRoundEnded      = "round_ended"
)

// GameEvent is one notable gameplay change. Only the fields relevant to
// Type are set.
type GameEvent struct {
	Tick    uint64 `json:"tick"`
	RoundID string `json:"round_id"`
	Type    string `json:"type"`

	RecipeID   int     `json:"recipe_id,omitempty"`
	RecipeName string  `json:"recipe_name,omitempty"`
	Crop       string  `json:"crop,omitempty"`
	Points     int     `json:"points,omitempty"`
	Bonus      float64 `json:"bonus,omitempty"`
	FromID     int     `json:"from_recipe_id,omitempty"`
	Kept       int     `json:"kept,omitempty"`
	PlantID    string  `json:"plant_id,omitempty"`
	Drops      int     `json:"drops,omitempty"`
	Text       string  `json:"text,omitempty"`
	Outcome    string  `json:"outcome,omitempty"`
	Score      int     `json:"score,omitempty"`
}
