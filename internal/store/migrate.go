package store

import (
	"fmt"
	"strings"

	"smart-check/internal/model"

	"gorm.io/gorm"
)

// DefaultProcedure is the name Migrate gives the least-loaded ranking on MySQL.
const DefaultProcedure = "get_user_with_least_tasks"

// Migrate creates the tables and, on MySQL, the ranking procedure.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Activity{},
		&model.Problem{},
		&model.UserActivity{},
		&model.Task{},
		&model.TaskLog{},
		&model.Report{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != "mysql" {
		return nil
	}
	if err := db.Exec("DROP PROCEDURE IF EXISTS " + DefaultProcedure).Error; err != nil {
		return fmt.Errorf("drop procedure: %w", err)
	}
	body := strings.Replace(leastLoadedSQL, "?", "p_activity_id", 1)
	create := "CREATE PROCEDURE " + DefaultProcedure + "(IN p_activity_id CHAR(36))\nBEGIN\n" + body + ";\nEND"
	if err := db.Exec(create).Error; err != nil {
		return fmt.Errorf("create procedure: %w", err)
	}
	return nil
}
