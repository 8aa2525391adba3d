package models

// All lists every persisted model in dependency order. SQLite runs migrate from
// these definitions; Postgres uses the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Favorite{},
		&Review{},
		&ReviewHelpful{},
		&ProductQuestion{},
		&ProductAnswer{},
		&AnswerHelpful{},
		&NewsletterSubscriber{},
	}
}
