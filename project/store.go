package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"argos/git"
	"argos/logging"
)

// FormatVersion is written into the persisted document so future versions
// can migrate older files
const FormatVersion = 1

// ErrNotFound is returned when a project or branch ID is unknown
var ErrNotFound = errors.New("not found")

// storeData is the serialized shape of projects.json
type storeData struct {
	Branches      []Branch  `json:"branches"`
	FormatVersion int       `json:"format_version"`
	Projects      []Project `json:"projects"`
}

// Store holds projects and branches in memory and persists every mutation
// to a JSON document via atomic rename
type Store struct {
	branches map[BranchID]Branch
	path     string
	projects map[ProjectID]Project

	// CorruptBackup is set when Load moved aside an undecodable file
	CorruptBackup string
}

// NewStore creates an empty store persisting to path
func NewStore(path string) *Store {
	return &Store{
		branches: make(map[BranchID]Branch),
		path:     path,
		projects: make(map[ProjectID]Project),
	}
}

// Load reads the store from path. A missing file yields an empty store.
// An undecodable file is moved aside with a timestamped suffix and an empty
// store is returned with CorruptBackup set; the caller should notify the user.
func Load(path string) (*Store, error) {
	store := NewStore(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return store, fmt.Errorf("failed to read projects file: %w", err)
	}

	var decoded storeData
	if err := json.Unmarshal(data, &decoded); err != nil {
		backup := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, backup); renameErr != nil {
			logging.Logger.Error("Failed to move aside corrupt projects file",
				"error", renameErr, "path", path)
			return store, fmt.Errorf("projects file is corrupt and could not be moved aside: %w", renameErr)
		}
		logging.Logger.Warn("Projects file was corrupt, starting with empty store",
			"path", path, "backup", backup, "error", err)
		store.CorruptBackup = backup
		return store, nil
	}

	for _, p := range decoded.Projects {
		store.projects[p.ID] = p
	}
	for _, b := range decoded.Branches {
		store.branches[b.ID] = b
	}

	logging.Logger.Debug("Loaded project store",
		"projects", len(store.projects), "branches", len(store.branches))
	return store, nil
}

// Save persists the store: write to a temporary sibling, fsync, rename
func (s *Store) Save() error {
	data := storeData{
		Branches:      s.branchesSlice(),
		FormatVersion: FormatVersion,
		Projects:      s.projectsSlice(),
	}

	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize projects: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for projects file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".projects-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary projects file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write projects file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync projects file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close projects file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace projects file: %w", err)
	}

	return nil
}

// AddProject registers a repository. The repository is scanned for its
// default branch and a matching branch record is created.
func (s *Store) AddProject(repoPath, name string) (Project, error) {
	isRepo, repoRoot := git.IsGitRepo(repoPath)
	if !isRepo {
		return Project{}, fmt.Errorf("not a git repository: %s", repoPath)
	}

	if existing := s.FindByRepoPath(repoRoot); existing != nil {
		return Project{}, fmt.Errorf("project already registered: %s", existing.Name)
	}

	if name == "" {
		name = filepath.Base(repoRoot)
	}

	defaultBranch := git.DefaultBranch(repoRoot)
	if defaultBranch == "" {
		defaultBranch = "main"
	}

	p := NewProject(name, repoRoot, defaultBranch)
	s.projects[p.ID] = p

	b := DefaultBranch(p.ID, defaultBranch, repoRoot)
	s.branches[b.ID] = b

	if err := s.Save(); err != nil {
		delete(s.projects, p.ID)
		delete(s.branches, b.ID)
		return Project{}, err
	}

	logging.Logger.Info("Added project", "name", p.Name, "repo_path", repoRoot, "default_branch", defaultBranch)
	return p, nil
}

// RenameProject updates a project's display name
func (s *Store) RenameProject(id ProjectID, name string) error {
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	p.Name = name
	s.projects[id] = p
	return s.Save()
}

// RemoveProject deletes a project and cascades to its branches
func (s *Store) RemoveProject(id ProjectID) error {
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	delete(s.projects, id)
	for bid, b := range s.branches {
		if b.ProjectID == id {
			delete(s.branches, bid)
		}
	}
	return s.Save()
}

// AddBranch registers a branch record
func (s *Store) AddBranch(b Branch) error {
	if _, ok := s.projects[b.ProjectID]; !ok {
		return fmt.Errorf("project %s: %w", b.ProjectID, ErrNotFound)
	}
	s.branches[b.ID] = b
	return s.Save()
}

// RemoveBranch deletes a branch record
func (s *Store) RemoveBranch(id BranchID) error {
	if _, ok := s.branches[id]; !ok {
		return fmt.Errorf("branch %s: %w", id, ErrNotFound)
	}
	delete(s.branches, id)
	return s.Save()
}

// Refresh reconciles branch records for a project with source-control
// reality: branches whose working directory disappeared are marked missing,
// reappearing ones are unmarked. Returns the number of records changed.
func (s *Store) Refresh(id ProjectID) (int, error) {
	if _, ok := s.projects[id]; !ok {
		return 0, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	changed := 0
	for bid, b := range s.branches {
		if b.ProjectID != id {
			continue
		}
		_, statErr := os.Stat(b.WorkingDir)
		missing := os.IsNotExist(statErr)
		if missing != b.Missing {
			b.Missing = missing
			s.branches[bid] = b
			changed++
			logging.Logger.Info("Branch working dir state changed",
				"branch", b.Name, "working_dir", b.WorkingDir, "missing", missing)
		}
	}

	if changed > 0 {
		if err := s.Save(); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// MarkBranchMissingByPath flags any branch whose working dir matches path
func (s *Store) MarkBranchMissingByPath(path string) bool {
	for bid, b := range s.branches {
		if b.WorkingDir == path && !b.Missing {
			b.Missing = true
			s.branches[bid] = b
			if err := s.Save(); err != nil {
				logging.Logger.Warn("Failed to persist missing branch flag", "error", err)
			}
			return true
		}
	}
	return false
}

// GetProject returns a project by ID
func (s *Store) GetProject(id ProjectID) (Project, bool) {
	p, ok := s.projects[id]
	return p, ok
}

// GetBranch returns a branch by ID
func (s *Store) GetBranch(id BranchID) (Branch, bool) {
	b, ok := s.branches[id]
	return b, ok
}

// FindByRepoPath finds a project by repository path
func (s *Store) FindByRepoPath(repoPath string) *Project {
	for _, p := range s.projects {
		if p.RepoPath == repoPath {
			return &p
		}
	}
	return nil
}

// FindBranch finds a branch by project and name
func (s *Store) FindBranch(projectID ProjectID, name string) *Branch {
	for _, b := range s.branches {
		if b.ProjectID == projectID && b.Name == name {
			return &b
		}
	}
	return nil
}

// ProjectsSorted returns all projects ordered by case-insensitive name
func (s *Store) ProjectsSorted() []Project {
	projects := s.projectsSlice()
	sort.Slice(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})
	return projects
}

// BranchesForProject returns a project's branches, default first then by name
func (s *Store) BranchesForProject(id ProjectID) []Branch {
	var branches []Branch
	for _, b := range s.branches {
		if b.ProjectID == id {
			branches = append(branches, b)
		}
	}
	sort.Slice(branches, func(i, j int) bool {
		if branches[i].IsDefault != branches[j].IsDefault {
			return branches[i].IsDefault
		}
		return branches[i].Name < branches[j].Name
	})
	return branches
}

// ProjectCount returns the number of projects
func (s *Store) ProjectCount() int {
	return len(s.projects)
}

// BranchCount returns the number of branches
func (s *Store) BranchCount() int {
	return len(s.branches)
}

func (s *Store) projectsSlice() []Project {
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) branchesSlice() []Branch {
	out := make([]Branch, 0, len(s.branches))
	for _, b := range s.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
