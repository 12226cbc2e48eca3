// Package gorm provides a GORM-backed UserStore for the secrets app.
//
// Anchor uniqueness (username, google id, facebook id) is enforced with
// database unique indexes, and the federated find-or-create rides on
// ON CONFLICT DO NOTHING plus a re-read: the database constraint, not
// an application-level check-then-create, decides races.
//
// Open the database with error translation enabled so unique-constraint
// violations surface as gorm.ErrDuplicatedKey:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	if err != nil { ... }
//	if err := gormstore.AutoMigrate(db); err != nil { ... }
//	store := gormstore.NewUserStore(db)
package gorm
