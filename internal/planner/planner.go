// Package planner turns a Config's include/exclude/mode selection
// into a concrete plan: the archive's existing entries reclassified
// as kept/replaced/deleted/copied-through, plus brand-new entries
// staged from the filesystem, in the order the writer should emit
// them.
package planner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"zipkit/internal/fswalk"
	"zipkit/internal/glob"
	"zipkit/internal/model"
	"zipkit/internal/session"
	"zipkit/internal/zerr"
)

// unixSymlinkMode is the S_IFLNK type nibble of a unix mode, stored in
// the upper 16 bits of ExternalAttrs.
const unixSymlinkMode = 0xA000

// Options configures one planning pass. It is built from session.Config
// plus the CLI's positional filename/pattern operands.
type Options struct {
	Mode session.Mode

	// Operands are the positional arguments naming files, directories,
	// or glob patterns to add/update/delete/copy.
	Operands []string

	Exclude []string

	Recursive         bool // -r
	RecursiveAnywhere bool // -R
	JunkPaths         bool // -j
	NoDirEntries      bool // -D
	StoreSymlinks     bool // -y
	SortEntries       bool

	TimeAfter  *time.Time
	TimeBefore *time.Time

	MatchCase bool

	// Warn, if set, is called once per operand that matched nothing on
	// disk, the same "name not matched" notice real zip prints rather
	// than failing outright.
	Warn func(msg string)
}

// Result is the planner's output: the reclassified archive plus, for
// reporting, a parallel list of (entry, action) describing exactly
// what changed this pass, in emission order.
type Result struct {
	Archive *model.Archive
	Plan    []PlanItem
}

// PlanItem pairs an entry with the action the writer will perform on it.
type PlanItem struct {
	Entry  *model.Entry
	Action model.Action
}

// Plan applies opts to existing (which may be an empty, freshly
// created Archive for a brand-new output), returning the reclassified
// archive and ordered plan.
//
// For the filesystem modes, operands are first expanded into
// candidates; one filter pass then drops candidates excluded by -x
// (matched against the final, possibly junked, archive name), outside
// the -t/-tt window, or directories under -D or -j; the survivors go
// through the mode decision, filesync then marks unmatched existing
// entries for deletion, and the optional sort runs last. A file
// excluded by -x therefore never reaches the mode decision.
func Plan(existing *model.Archive, opts Options) (Result, error) {
	switch opts.Mode {
	case session.ModeDelete:
		return planDelete(existing, opts)
	case session.ModeCopy:
		return planCopy(existing, opts)
	default:
		return planFilesystemMode(existing, opts)
	}
}

func planFilesystemMode(existing *model.Archive, opts Options) (Result, error) {
	candidates, err := expandMatches(opts)
	if err != nil {
		return Result{}, err
	}

	excl, err := glob.New(opts.Exclude, opts.MatchCase)
	if err != nil {
		return Result{}, err
	}

	surviving := make([]fswalk.Entry, 0, len(candidates))
	for _, c := range candidates {
		name := archiveName(c, opts)
		if !excl.Empty() && excl.Match(name) {
			continue
		}
		if opts.TimeAfter != nil && !c.ModTime.After(*opts.TimeAfter) {
			continue
		}
		if opts.TimeBefore != nil && !c.ModTime.Before(*opts.TimeBefore) {
			continue
		}
		if opts.NoDirEntries && c.Dir {
			continue
		}
		// Junking paths collapses the directory hierarchy the entry
		// would otherwise preserve, so a directory entry has no
		// meaningful junked name; real zip drops them under -j rather
		// than emitting a collision-prone bare "./ ".
		if opts.JunkPaths && c.Dir {
			continue
		}
		surviving = append(surviving, c)
	}

	out := &model.Archive{ArchiveComment: existing.ArchiveComment}
	out.Entries = append(out.Entries, existing.Entries...)

	surviveNames := make(map[string]bool, len(surviving))
	var plan []PlanItem

	for _, c := range surviving {
		name := archiveName(c, opts)
		surviveNames[name] = true

		prior := out.ByName(name)
		action, ok := decideAction(opts.Mode, prior, c)
		if !ok {
			continue
		}

		entry, err := newFilesystemEntry(name, c, opts)
		if err != nil {
			return Result{}, err
		}
		entry.Action = action
		plan = append(plan, PlanItem{Entry: entry, Action: action})

		if prior != nil {
			prior.Action = model.ActionReplace
			replaceEntry(out, prior, entry)
		} else {
			out.Entries = append(out.Entries, entry)
		}
	}

	if opts.Mode == session.ModeFilesync {
		for _, e := range out.Entries {
			if e.Origin == model.OriginExisting && !surviveNames[e.Name] {
				e.Action = model.ActionDelete
				plan = append(plan, PlanItem{Entry: e, Action: model.ActionDelete})
			}
		}
	}

	if opts.Mode == session.ModeUpdate && len(plan) == 0 {
		return Result{}, zerr.New(zerr.NothingToDo, "no files need updating")
	}

	if opts.SortEntries {
		sortCopyThroughLexicographic(out)
	}

	out.RecomputeZip64Need()
	return Result{Archive: out, Plan: plan}, nil
}

// decideAction implements the mode-application rules of step 4: given
// whether an archive name already exists (prior) and the candidate
// filesystem entry c, decide what the writer should do, or ok=false
// to skip entirely.
func decideAction(mode session.Mode, prior *model.Entry, c fswalk.Entry) (model.Action, bool) {
	// Compare at the archive's 2-second DOS resolution, so a source
	// untouched since it was archived is not seen as newer.
	src := model.DOSToTime(model.TimeToDOS(c.ModTime))
	switch mode {
	case session.ModeCreate, session.ModeFilesync:
		if prior != nil {
			return model.ActionReplace, true
		}
		return model.ActionAdd, true
	case session.ModeUpdate:
		if prior == nil {
			return model.ActionAdd, true
		}
		if src.After(prior.ModTime()) {
			return model.ActionReplace, true
		}
		return model.ActionKeep, false
	case session.ModeFreshen:
		if prior == nil {
			return model.ActionKeep, false
		}
		if src.After(prior.ModTime()) {
			return model.ActionReplace, true
		}
		return model.ActionKeep, false
	default:
		return model.ActionAdd, true
	}
}

func newFilesystemEntry(name string, c fswalk.Entry, opts Options) (*model.Entry, error) {
	e := &model.Entry{
		Name:   name,
		Origin: model.OriginNew,
		Source: model.Source{Kind: model.SourceFromDisk, Path: c.Path},
	}
	e.SetModTime(c.ModTime)
	if c.Dir {
		e.Method = model.MethodStore
	}

	if opts.StoreSymlinks && c.Mode&fs.ModeSymlink != 0 {
		target, err := os.Readlink(c.Path)
		if err != nil {
			return nil, zerr.Wrap(zerr.IO, c.Path, err)
		}
		e.Source = model.Source{Kind: model.SourceFromMemory, Bytes: []byte(target)}
		e.Method = model.MethodStore
		e.ExternalAttrs = (unixSymlinkMode | 0o777) << 16
	}

	return e, nil
}

func replaceEntry(a *model.Archive, prior, next *model.Entry) {
	for i, e := range a.Entries {
		if e == prior {
			a.Entries[i] = next
			return
		}
	}
}

func archiveName(c fswalk.Entry, opts Options) string {
	name := c.RelPath
	if opts.JunkPaths && !c.Dir {
		name = filepath.Base(name)
	}
	return name
}

func planDelete(existing *model.Archive, opts Options) (Result, error) {
	matcher, err := glob.New(opts.Operands, opts.MatchCase)
	if err != nil {
		return Result{}, err
	}

	out := &model.Archive{ArchiveComment: existing.ArchiveComment, Entries: existing.Entries}
	var plan []PlanItem
	for _, e := range out.Entries {
		if matcher.Match(e.Name) {
			e.Action = model.ActionDelete
			plan = append(plan, PlanItem{Entry: e, Action: model.ActionDelete})
		}
	}

	out.RecomputeZip64Need()
	return Result{Archive: out, Plan: plan}, nil
}

func planCopy(existing *model.Archive, opts Options) (Result, error) {
	var matcher *glob.Matcher
	var err error
	if len(opts.Operands) > 0 {
		matcher, err = glob.New(opts.Operands, opts.MatchCase)
		if err != nil {
			return Result{}, err
		}
	}

	out := &model.Archive{ArchiveComment: existing.ArchiveComment}
	var plan []PlanItem
	for _, e := range existing.Entries {
		if e.Action == model.ActionDelete {
			continue
		}
		if matcher != nil && !matcher.Empty() && !matcher.Match(e.Name) {
			continue
		}
		e.Action = model.ActionCopyThrough
		out.Entries = append(out.Entries, e)
		plan = append(plan, PlanItem{Entry: e, Action: model.ActionCopyThrough})
	}

	out.RecomputeZip64Need()
	return Result{Archive: out, Plan: plan}, nil
}

// expandMatches resolves opts.Operands against the filesystem per the
// -R (match anywhere in the recursive tree rooted at cwd) versus -r
// (the named directories are traversed) distinction.
func expandMatches(opts Options) ([]fswalk.Entry, error) {
	if opts.RecursiveAnywhere {
		all, err := fswalk.Walk(".", fswalk.Options{})
		if err != nil {
			return nil, zerr.Wrap(zerr.IO, ".", err)
		}
		matcher, err := glob.New(opts.Operands, opts.MatchCase)
		if err != nil {
			return nil, err
		}
		var out []fswalk.Entry
		for _, e := range all {
			if matcher.Match(e.RelPath) || matcher.Match(filepath.Base(e.RelPath)) {
				out = append(out, e)
			}
		}
		return out, nil
	}

	var out []fswalk.Entry
	seen := make(map[string]bool)
	for _, operand := range opts.Operands {
		entries, err := expandOperand(operand, opts)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 && opts.Warn != nil {
			opts.Warn("name not matched: " + operand)
		}
		for _, e := range entries {
			if seen[e.Path] {
				continue
			}
			seen[e.Path] = true
			out = append(out, e)
		}
	}
	return out, nil
}

func expandOperand(operand string, opts Options) ([]fswalk.Entry, error) {
	info, statErr := os.Lstat(operand)
	if statErr == nil {
		if info.IsDir() {
			if !opts.Recursive {
				return nil, zerr.Newf(zerr.Usage, "%s is a directory but recursion was not requested (-r)", operand)
			}
			entries, err := fswalk.Walk(operand, fswalk.Options{})
			if err != nil {
				return nil, zerr.Wrap(zerr.IO, operand, err)
			}
			base := filepath.Base(operand)
			for i := range entries {
				entries[i].RelPath = filepath.ToSlash(filepath.Join(base, entries[i].RelPath))
				if entries[i].Dir {
					entries[i].RelPath += "/"
				}
			}
			// fswalk.Walk never reports the root it was given, only its
			// children, but -r must still add a directory entry for the
			// named directory itself.
			root := fswalk.Entry{
				Path:    operand,
				RelPath: base + "/",
				Dir:     true,
				ModTime: info.ModTime(),
				Mode:    info.Mode(),
			}
			return append([]fswalk.Entry{root}, entries...), nil
		}
		return []fswalk.Entry{{
			Path:    operand,
			RelPath: filepath.ToSlash(operand),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		}}, nil
	}

	// Not a literal path: treat as a glob pattern matched against cwd.
	root := "."
	walkOpts := fswalk.Options{}
	all, err := fswalk.Walk(root, walkOpts)
	if err != nil {
		return nil, zerr.Wrap(zerr.IO, root, err)
	}
	matcher, err := glob.New([]string{operand}, opts.MatchCase)
	if err != nil {
		return nil, err
	}
	var out []fswalk.Entry
	for _, e := range all {
		if matcher.Match(e.RelPath) {
			out = append(out, e)
		}
	}
	return out, nil
}

func sortCopyThroughLexicographic(a *model.Archive) {
	sort.SliceStable(a.Entries, func(i, j int) bool {
		return a.Entries[i].Name < a.Entries[j].Name
	})
}
