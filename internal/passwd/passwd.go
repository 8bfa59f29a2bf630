// Package passwd implements the operator tool that hashes a password for
// seeding accounts directly in the database.
package passwd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/cryptox"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/services"
	"github.com/dmitrijs2005/bizdesk/internal/validation"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var (
	ErrMismatch = errors.New("passwords do not match")
	ErrTooShort = fmt.Errorf("password must be at least %d characters", services.MinPasswordLength)
)

// getPassword prints prompt to w and reads a password from the terminal
// without echo. The caller wipes the result.
func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// Run parses args, asks for the password twice and writes the argon2id
// hash to out. With -email it writes an INSERT statement instead.
func Run(args []string, out, prompts io.Writer) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(prompts)
	email := fs.String("email", "", "account email; prints an INSERT statement when set")
	name := fs.String("name", "", "account display name")
	role := fs.String("role", string(models.RoleAdmin), "account role: ADMIN, STAFF or CLIENT")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := models.Role(strings.ToUpper(*role))
	if !r.Valid() {
		return fmt.Errorf("%w: unknown role %q", common.ErrInvalidInput, *role)
	}
	if err := validation.Var(*email, "omitempty,email"); err != nil {
		return fmt.Errorf("-email: %w", err)
	}

	pw, err := getPassword(prompts, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	again, err := getPassword(prompts, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	if string(pw) != string(again) {
		return ErrMismatch
	}
	if validation.Var(string(pw), fmt.Sprintf("min=%d", services.MinPasswordLength)) != nil {
		return ErrTooShort
	}

	hash := cryptox.HashPassword(string(pw))
	if *email == "" {
		_, err = fmt.Fprintln(out, hash)
		return err
	}

	_, err = fmt.Fprintf(out,
		"INSERT INTO users (id, email, name, role, active, password_hash) VALUES (%s, %s, %s, %s, true, %s);\n",
		quote(uuid.NewString()), quote(strings.ToLower(*email)), quote(*name), quote(string(r)), quote(hash))
	return err
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
