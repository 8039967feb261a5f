package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AdminsFile maps admin emails to their password hashes.
//
// Path: <dir>/admins.json. Only admins may add or delete milestones;
// everyone else is a viewer, so there are no roles beyond membership.
type AdminsFile struct {
	Admins []AdminRef `json:"admins"`
}

type AdminRef struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

func AdminsPath(dir string) string {
	return filepath.Join(filepath.Clean(strings.TrimSpace(dir)), "admins.json")
}

func LoadAdmins(dir string) (AdminsFile, bool, error) {
	b, err := os.ReadFile(AdminsPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AdminsFile{}, false, nil
		}
		return AdminsFile{}, false, err
	}

	var f AdminsFile
	if err := json.Unmarshal(b, &f); err != nil {
		return AdminsFile{}, true, err
	}
	if f.Admins == nil {
		f.Admins = []AdminRef{}
	}

	// Normalize + validate.
	out := make([]AdminRef, 0, len(f.Admins))
	for _, a := range f.Admins {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		hash := strings.TrimSpace(a.PasswordHash)
		if email == "" && hash == "" {
			continue
		}
		if email == "" {
			return AdminsFile{}, true, errors.New("admins.json: admin missing email")
		}
		if hash == "" {
			return AdminsFile{}, true, errors.New("admins.json: admin missing passwordHash")
		}
		out = append(out, AdminRef{Email: email, PasswordHash: hash})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	f.Admins = out

	return f, true, nil
}

func SaveAdmins(dir string, f AdminsFile) error {
	if err := os.MkdirAll(filepath.Clean(strings.TrimSpace(dir)), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	// Holds password hashes; keep it out of other users' reach.
	return os.WriteFile(AdminsPath(dir), append(b, '\n'), 0o600)
}

func (f AdminsFile) Find(email string) (AdminRef, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return AdminRef{}, false
	}
	for _, a := range f.Admins {
		if a.Email == email {
			return a, true
		}
	}
	return AdminRef{}, false
}

func (f *AdminsFile) Upsert(email, passwordHash string) {
	email = strings.ToLower(strings.TrimSpace(email))
	for i, a := range f.Admins {
		if a.Email == email {
			f.Admins[i].PasswordHash = passwordHash
			return
		}
	}
	f.Admins = append(f.Admins, AdminRef{Email: email, PasswordHash: passwordHash})
	sort.Slice(f.Admins, func(i, j int) bool { return f.Admins[i].Email < f.Admins[j].Email })
}

// Remove deletes the admin by email and reports whether it was present.
func (f *AdminsFile) Remove(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for i, a := range f.Admins {
		if a.Email == email {
			f.Admins = append(f.Admins[:i], f.Admins[i+1:]...)
			return true
		}
	}
	return false
}
