package storage

import (
	"github.com/shopspring/decimal"

	"lifeboard/date"
	"lifeboard/domain"
)

// DefaultColumns returns the three-lane starter board.
func DefaultColumns() []domain.Column {
	return []domain.Column{
		{ID: "TODO", Title: "To Do", Color: domain.ColorBlue},
		{ID: "IN_PROGRESS", Title: "In Progress", Color: domain.ColorYellow},
		{ID: "DONE", Title: "Done", Color: domain.ColorGreen},
	}
}

// DefaultSettings returns the seeded singleton settings record.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		InvestmentGoal: decimal.NewFromInt(100000),
		TargetYear:     2030,
	}
}

// DefaultBoard returns the content seeded into an empty local store: one
// starter task, the default columns, no assets and the default settings.
func DefaultBoard() domain.Board {
	return domain.Board{
		Tasks: []domain.Task{{
			ID:        newID(),
			Title:     "Add your first task",
			Category:  domain.CategoryPersonal,
			Status:    "TODO",
			DueDate:   date.Today(),
			CreatedAt: domain.NowUnixMilli(),
		}},
		Columns:  DefaultColumns(),
		Assets:   []domain.Asset{},
		Settings: DefaultSettings(),
	}
}
