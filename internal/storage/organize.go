package storage

import (
	"context"
	"os"
	"path"
	"strings"
)

// OrganizeReport summarizes one Organize pass.
type OrganizeReport struct {
	Moved   []string
	Skipped []string
	Failed  map[string]error
}

// OrganizedKey maps a generated image name of the form
// <shot>_<x>_<character>_<emotion>_<angle...>_<counter>_.png to
// <character>/<shot>/<emotion>/<angle>/<name>. The trailing counter is never
// part of the angle; a name with five parts has an empty angle and lands in
// <character>/<shot>/<emotion>/. Shorter names are reported as unparseable.
func OrganizedKey(name string) (string, bool) {
	stem, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return "", false
	}
	parts := strings.Split(strings.TrimSuffix(stem, "_"), "_")
	if len(parts) < 5 {
		return "", false
	}
	shot, character, emotion := parts[0], parts[2], parts[3]
	angle := strings.Join(parts[4:len(parts)-1], "_")
	return path.Join(character, shot, emotion, angle, name), true
}

// Organize moves every top-level generated image into its organized
// directory. Files that cannot be parsed are left in place.
func (s *FileStore) Organize(ctx context.Context) (OrganizeReport, error) {
	report := OrganizeReport{Failed: map[string]error{}}
	entries, err := os.ReadDir(s.BasePath())
	if err != nil {
		return report, err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		target, ok := OrganizedKey(entry.Name())
		if !ok {
			report.Skipped = append(report.Skipped, entry.Name())
			continue
		}
		moved, err := s.Move(ctx, entry.Name(), target)
		if err != nil {
			report.Failed[entry.Name()] = err
			continue
		}
		report.Moved = append(report.Moved, moved)
	}
	return report, nil
}
