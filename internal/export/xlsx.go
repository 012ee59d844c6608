// Package export renders tabular data as xlsx workbooks.
package export

import (
	"fmt"
	"strconv"
	"time"

	"support-bot/internal/repo"

	"github.com/xuri/excelize/v2"
)

const (
	UsersSheet = "users"
	timeLayout = "2006-01-02 15:04:05"
)

// UserColumns is the header row of Users.
var UserColumns = []string{
	"user_id",
	"chat_id",
	"username",
	"first_name",
	"last_name",
	"phone_number",
	"last_updated_date",
	"status",
	"created_at",
}

// Table writes header and rows to a single-sheet workbook and returns its bytes.
func Table(sheet string, header []string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Users exports users with one column per users table field.
func Users(users []repo.User) ([]byte, error) {
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{
			strconv.FormatInt(u.UserID, 10),
			strconv.FormatInt(u.ChatID, 10),
			str(u.Username),
			str(u.FirstName),
			str(u.LastName),
			str(u.PhoneNumber),
			timestamp(u.LastUpdatedDate),
			string(u.Status),
			u.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return Table(UsersSheet, UserColumns, rows)
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
