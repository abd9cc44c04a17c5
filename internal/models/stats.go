package models

// PlatformStats aggregates platform-wide figures in minor units.
type PlatformStats struct {
	TotalAccounts    int64 `json:"total_accounts"`
	CompletedGames   int64 `json:"completed_games"`
	TotalStaked      int64 `json:"total_staked"`
	TotalWinnings    int64 `json:"total_winnings"`
	PlatformEarnings int64 `json:"platform_earnings"`
	WaitingRooms     int64 `json:"waiting_rooms"`
	InProgressRooms  int64 `json:"in_progress_rooms"`
}
