// Package driver runs the fix pipeline over files and directories. It
// owns everything around a fix that the fixer itself does not: loading
// carts into a FileSet, the disk cache, parallel directory walks, and
// progress events for the terminal UI.
package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"pix8/internal/diag"
	"pix8/internal/fixer"
	"pix8/internal/source"
	"pix8/internal/trace"
)

// Options configures a driver run.
type Options struct {
	MaxDiagnostics int  // per-file diagnostic cap, 0 means a sane default
	Jobs           int  // parallel workers for directories, 0 means GOMAXPROCS
	NoBootShim     bool // disable the boot-shim patch (cart.toml [fix].boot_shim)
	Cache          *DiskCache
	Tracer         trace.Tracer
	Progress       func(Event) // called from worker goroutines
}

const defaultMaxDiagnostics = 256

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics > 0 {
		return o.MaxDiagnostics
	}
	return defaultMaxDiagnostics
}

func (o Options) tracer() trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}
	return trace.Nop
}

// Event reports per-file progress during a directory run.
type Event struct {
	Path     string
	Done     int // files finished so far, including this one
	Total    int
	CacheHit bool
	Err      error
}

// Result is the outcome of fixing one cartridge.
type Result struct {
	Path     string
	FileID   source.FileID
	Fixed    string
	Bag      *diag.Bag
	CacheHit bool
	Err      error
}

// Failed reports whether this file could not be fixed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// FixFile loads one cartridge and runs the full pipeline on it. The
// returned Result carries diagnostics even on failure. The FileSet
// accumulates both the raw and the patched text, so every diagnostic
// span stays resolvable.
func (d Options) FixFile(fileSet *source.FileSet, path string) Result {
	bag := diag.NewBag(d.maxDiagnostics())
	res := Result{Path: path, Bag: bag}

	end := trace.Span(d.tracer(), trace.ScopeFile, "fix", path)
	defer end()

	id, err := fileSet.Load(path)
	if err != nil {
		diag.ReportError(diag.BagReporter{Bag: bag}, diag.IOLoadFileError, source.Span{}, err.Error())
		res.Err = err
		return res
	}
	res.FileID = id
	content := fileSet.Get(id).Content

	// cached entries were produced with the default shim setting
	useCache := d.Cache != nil && !d.NoBootShim

	key := Key(content)
	if useCache {
		var payload DiskPayload
		if hit, _ := d.Cache.Get(key, &payload); hit {
			trace.Point(d.tracer(), trace.ScopePass, "cache", "hit")
			res.Fixed = payload.Fixed
			res.CacheHit = true
			return res
		}
	}

	f := fixer.New(string(content),
		fixer.WithName(path),
		fixer.WithFileSet(fileSet),
		fixer.WithBootShim(!d.NoBootShim),
		fixer.WithTracer(d.tracer()),
		fixer.WithReporter(diag.NewDedupReporter(diag.BagReporter{Bag: bag})))
	res.FileID = f.FileID()

	endFix := trace.Span(d.tracer(), trace.ScopePass, "analyze+rewrite", path)
	fixed, err := f.Fix()
	endFix()
	if err != nil {
		res.Err = err
		return res
	}
	res.Fixed = fixed

	if useCache {
		// failure to cache never fails the fix
		_ = d.Cache.Put(key, &DiskPayload{Input: key, Patched: f.Patched(), Fixed: fixed})
	}
	return res
}

// CheckFile runs the analysis without keeping the rewritten text.
func (d Options) CheckFile(fileSet *source.FileSet, path string) Result {
	res := d.FixFile(fileSet, path)
	res.Fixed = ""
	return res
}

// ListCarts returns every *.lua and *.p8 file under dir, sorted for a
// deterministic run order.
func ListCarts(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".lua") || strings.HasSuffix(path, ".p8") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FixDir fixes every cartridge under dir in parallel. Each worker gets
// its own FileSet and Fixer; results are merged in file order. The
// returned FileSet resolves every span in the results.
func (d Options) FixDir(ctx context.Context, dir string) (*source.FileSet, []Result, error) {
	files, err := ListCarts(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return source.NewFileSetWithBase(dir), nil, nil
	}

	jobs := d.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if jobs > len(files) {
		jobs = len(files)
	}

	type indexed struct {
		set *source.FileSet
		res Result
	}
	out := make([]indexed, len(files))
	done := make(chan int, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// one FileSet per worker file: FileSet is not
			// goroutine-safe and results are remapped afterwards
			set := source.NewFileSetWithBase(dir)
			res := d.FixFile(set, path)
			out[i] = indexed{set: set, res: res}
			done <- i
			return nil
		})
	}

	// progress events in completion order
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for n := 1; n <= len(files); n++ {
			i, ok := <-done
			if !ok {
				return
			}
			if d.Progress != nil {
				d.Progress(Event{
					Path:     files[i],
					Done:     n,
					Total:    len(files),
					CacheHit: out[i].res.CacheHit,
					Err:      out[i].res.Err,
				})
			}
		}
	}()

	err = g.Wait()
	close(done)
	<-progressDone
	if err != nil {
		return nil, nil, err
	}

	// merge the per-worker FileSets into one, remapping span file IDs
	merged := source.NewFileSetWithBase(dir)
	results := make([]Result, len(files))
	for i := range out {
		results[i] = remapResult(merged, out[i].set, out[i].res)
	}
	return merged, results, nil
}

// CheckDir is FixDir without keeping the rewritten text.
func (d Options) CheckDir(ctx context.Context, dir string) (*source.FileSet, []Result, error) {
	fileSet, results, err := d.FixDir(ctx, dir)
	for i := range results {
		results[i].Fixed = ""
	}
	return fileSet, results, err
}

// remapResult copies a worker's files into the merged FileSet and
// rewrites the file IDs inside the result's spans.
func remapResult(merged, worker *source.FileSet, res Result) Result {
	idMap := make(map[source.FileID]source.FileID)
	for _, f := range worker.Files() {
		idMap[f.ID] = merged.Add(f.Path, f.Content, f.Flags)
	}

	if mapped, ok := idMap[res.FileID]; ok {
		res.FileID = mapped
	}
	if res.Bag != nil {
		res.Bag.RemapFiles(idMap)
	}
	return res
}
