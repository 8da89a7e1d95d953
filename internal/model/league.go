package model

type League struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
}

type Season struct {
	ID       string `json:"id"`
	LeagueID string `json:"league_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
}
