// internal/game/events.go
package game

// Command names accepted over the wire.
const (
	CmdCurrentState = "current_state"
	CmdJoin         = "join"
	CmdName         = "name"
	CmdRematch      = "rematch"
	CmdPlay         = "play"
	CmdTakeChoice   = "take_choice"
)

// Outbound event names. The first token of every frame is one of these.
const (
	EventPlayers         = "players"
	EventPlayerID        = "player_id"
	EventBegin           = "begin"
	EventAnimations      = "animations"
	EventDrawCard        = "draw_card"
	EventPlayCard        = "play_card"
	EventShowBriscola    = "show_briscola"
	EventDrawBriscola    = "draw_briscola"
	EventAddToTable      = "add_to_table"
	EventActivateCard    = "activate_card"
	EventCaptureTakeable = "capture_takeable_cards"
	EventCaptureSelected = "capture_selected_cards"
	EventTake            = "take"
	EventTakeAll         = "take_all"
	EventTurn            = "turn"
	EventTurnStatus      = "turn_status"
	EventPoints          = "points"
	EventPointsScopa     = "points_scopa"
	EventDeckCount       = "deck_count"
	EventResultsPrepare  = "results_prepare"
	EventResultsDetail   = "results_detail"
	EventResults         = "results"
	EventError           = "error"
)
