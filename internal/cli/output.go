package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"userconsole/internal/console"
	"userconsole/internal/models"
	"userconsole/pkg/validation"
)

// PrintError writes a failed command's error the way userctl reports it.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, color.RedString("Error:"), err)
}

func printNotice(w io.Writer, msg string) {
	fmt.Fprintln(w, color.GreenString(msg))
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, color.YellowString(msg))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusText(u models.User) string {
	if u.Active() {
		return color.GreenString(string(models.StatusActive))
	}
	return color.RedString(string(models.StatusInactive))
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderUsers(w io.Writer, users []models.User, self int64) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Username", "Full name", "Email", "Role", "Status", "Created"})
	for _, u := range users {
		name := u.Username
		if u.ID == self {
			name += " (you)"
		}
		t.AppendRow(table.Row{u.ID, name, u.FullName, u.Email, u.Role, statusText(u), u.CreatedDate()})
	}
	t.Render()
}

func renderUser(w io.Writer, u models.User) {
	t := newTable(w)
	phone := u.Phone
	if phone == "" {
		phone = "-"
	}
	t.AppendRows([]table.Row{
		{"ID", u.ID},
		{"Username", u.Username},
		{"Full name", u.DisplayName()},
		{"Email", u.Email},
		{"Phone", phone},
		{"Role", u.Role},
		{"Status", statusText(u)},
		{"Member since", u.CreatedDate()},
	})
	t.Render()
}

func renderStats(w io.Writer, s console.Stats) {
	fmt.Fprintf(w, "Total: %d  Active: %d  Inactive: %d\n", s.Total, s.Active, s.Inactive)
}

type statsOutput struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type usersOutput struct {
	Users []models.User `json:"users"`
	Stats statsOutput   `json:"stats"`
}

// formError flattens a rejected form into one error, fields in name order.
func formError(fe validation.FieldErrors, msg string) error {
	if msg != "" {
		return errors.New(msg)
	}
	if len(fe) == 0 {
		return nil
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return errors.New(strings.Join(parts, "; "))
}
