package codec

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultBackupRetention is how many backups are kept per graph.
const DefaultBackupRetention = 10

// BackupPolicy controls the backup copy written before each overwrite.
type BackupPolicy struct {
	Enabled   bool
	Retention int
}

// DefaultBackupPolicy keeps the 10 most recent backups.
func DefaultBackupPolicy() BackupPolicy {
	return BackupPolicy{Enabled: true, Retention: DefaultBackupRetention}
}

// Keep returns the effective retention count.
func (p BackupPolicy) Keep() int {
	if p.Retention <= 0 {
		return DefaultBackupRetention
	}
	return p.Retention
}

// backupLayout is fixed width so stamps sort chronologically as strings.
const backupLayout = "20060102T150405.000000000Z"

// BackupStamp formats t as a backup suffix.
func BackupStamp(t time.Time) string {
	return t.UTC().Format(backupLayout)
}

// ParseBackupStamp reverses BackupStamp.
func ParseBackupStamp(s string) (time.Time, error) {
	return time.Parse(backupLayout, s)
}

var stampPattern = regexp.MustCompile(`^\d{8}T\d{6}\.\d{9}Z$`)

// IsBackupStamp reports whether s has the backup suffix shape.
func IsBackupStamp(s string) bool {
	return stampPattern.MatchString(s)
}

// ExpiredStamps returns the stamps beyond the newest keep, oldest first.
func ExpiredStamps(stamps []string, keep int) []string {
	if len(stamps) <= keep {
		return nil
	}
	sorted := append([]string(nil), stamps...)
	sort.Strings(sorted)
	return sorted[:len(sorted)-keep]
}

// NewestFirst sorts stamps in place from newest to oldest.
func NewestFirst(stamps []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidStorageID reports whether id is safe to use as a file name or key suffix.
func ValidStorageID(id string) bool {
	return len(id) <= 200 && idPattern.MatchString(id) && !strings.Contains(id, BackupMarker)
}

// BackupMarker separates a graph id from a backup stamp in file names and keys.
const BackupMarker = ".backup."

// BackupName returns "<id>.backup.<stamp>".
func BackupName(id, stamp string) string {
	return id + BackupMarker + stamp
}

// SplitBackupName reverses BackupName. ok is false for primary names.
func SplitBackupName(name string) (id, stamp string, ok bool) {
	i := strings.LastIndex(name, BackupMarker)
	if i <= 0 {
		return "", "", false
	}
	id, stamp = name[:i], name[i+len(BackupMarker):]
	if !IsBackupStamp(stamp) {
		return "", "", false
	}
	return id, stamp, true
}
