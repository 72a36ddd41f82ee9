// Package export writes the admin user list as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx/v3"

	"github.com/erazemk/findit/internal/model"
)

// SheetName is the name of the single sheet in the workbook.
const SheetName = "Users"

// Header is the first row of the sheet.
var Header = []string{"S.No", "Email", "Name", "Role", "Department", "Designation"}

// WriteUsers writes users as an .xlsx workbook to w.
func WriteUsers(w io.Writer, users []model.User) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for i := range users {
		u := &users[i]
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(u.Email)
		row.AddCell().SetString(u.Name())
		row.AddCell().SetString(model.RoleName(u.Role))
		row.AddCell().SetString(u.Department)
		row.AddCell().SetString(u.Designation)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
