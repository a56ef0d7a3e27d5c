// bridge-inspect runs the bridge through a scripted host session and
// reports what each step observed: identity, casts, invalidation cascades,
// shared reference counts, rooting and collection.
//
// Usage:
//
//	bridge-inspect [-manifest types.yaml] [-v]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/feather-lang/bridge"
	"github.com/feather-lang/bridge/host"
	"golang.org/x/term"
)

const defaultManifest = `
types:
  - name: Actor
  - name: Pawn
    bases: [Actor]
    aliases: [APawn]
  - name: Transform
  - name: Texture
  - name: Snapshot
`

type Actor struct {
	host.Object
	Transform Transform
}

type Pawn struct {
	Actor
	Speed float64
}

type Transform struct {
	X, Y, Z float64
}

type Texture struct {
	Name string
}

type report struct {
	out   io.Writer
	color bool
	fails int
}

func (r *report) step(name string, ok bool, detail string) {
	status := "ok"
	if !ok {
		status = "FAIL"
		r.fails++
	}
	if r.color {
		if ok {
			status = "\033[32m" + status + "\033[0m"
		} else {
			status = "\033[31m" + status + "\033[0m"
		}
	}
	fmt.Fprintf(r.out, "%-4s %-28s %s\n", status, name, detail)
}

func main() {
	manifestPath := flag.String("manifest", "", "YAML type manifest (default: built in)")
	verbose := flag.Bool("v", false, "log bridge events to stderr")
	flag.Parse()

	var src io.Reader = strings.NewReader(defaultManifest)
	if *manifestPath != "" {
		f, err := os.Open(*manifestPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		src = f
	}
	m, err := bridge.LoadManifest(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	r := &report{out: os.Stdout, color: term.IsTerminal(int(os.Stdout.Fd()))}
	if err := run(r, m, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if r.fails > 0 {
		fmt.Fprintf(os.Stdout, "%d step(s) failed\n", r.fails)
		os.Exit(1)
	}
}

func run(r *report, m *bridge.Manifest, logger *slog.Logger) error {
	heap := host.NewHeap(host.WithLogger(logger))
	b := bridge.New(bridge.WithHost(heap), bridge.WithLogger(logger), bridge.WithCollector(false))
	defer b.Close()

	if err := b.Types().Apply(m); err != nil {
		return err
	}
	if err := bindTypes(b); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "bridge %s\n", b.ID())

	actorClass := host.NewClass("Actor", nil)
	pawnClass := host.NewClass("Pawn", actorClass)

	// identity and casts
	pawn := &Pawn{Speed: 600}
	if err := heap.Register(pawn, pawnClass, "pawn0"); err != nil {
		return err
	}
	v1, err := b.PushObject(pawn, "Pawn")
	if err != nil {
		return err
	}
	v2, err := b.PushObject(pawn, "Pawn")
	if err != nil {
		return err
	}
	r.step("identity", v1 == v2, v1.String())

	base, err := bridge.CheckedGet[*Actor](b, v1, true)
	r.step("cast Pawn to Actor", err == nil && base == &pawn.Actor, fmt.Sprintf("%p", base))

	_, err = bridge.CheckedGet[*Texture](b, v1, true)
	r.step("cast Pawn to Texture", errors.Is(err, bridge.ErrTypeMismatch), errString(err))

	// rooting
	heap.Collect()
	r.step("rooted survives collect", heap.Live(pawn), fmt.Sprintf("roots=%d", b.Stats().Roots))

	// linked child invalidation
	tr, err := b.PushAndLink(pawn, &pawn.Transform, "Transform")
	if err != nil {
		return err
	}
	heap.Destroy(pawn)
	_, err = bridge.CheckedGet[*Transform](b, tr, true)
	r.step("cascade to Transform", errors.Is(err, bridge.ErrUseAfterFree), errString(err))
	_, err = bridge.CheckedGet[*Pawn](b, v1, true)
	r.step("freed Pawn", errors.Is(err, bridge.ErrUseAfterFree), errString(err))
	b.Reclaim(v1)
	b.Reclaim(tr)

	// shared reference
	disposed := false
	ref := bridge.NewShared(&Texture{Name: "grass"}, bridge.ThreadSafe, func(*Texture) { disposed = true })
	tex, err := bridge.PushShared(b, ref, "Texture")
	if err != nil {
		return err
	}
	r.step("shared box retains", ref.StrongCount() == 2, fmt.Sprintf("count=%d", ref.StrongCount()))
	ref.Release()
	b.Reclaim(tex)
	b.Reclaim(tex)
	r.step("shared finalize once", disposed && ref.StrongCount() == 0, fmt.Sprintf("count=%d", ref.StrongCount()))

	// tracked buffer
	keep := &Actor{}
	gone := &Actor{}
	if err := heap.Register(keep, actorClass, "keep"); err != nil {
		return err
	}
	if err := heap.Register(gone, actorClass, "gone"); err != nil {
		return err
	}
	buf := bridge.NewBuffer([]byte("snapshot"), 2)
	buf.Refs[0], buf.Refs[1] = keep, gone
	snap, err := b.PushBuffer(buf, "Snapshot")
	if err != nil {
		return err
	}
	heap.Destroy(gone)
	heap.Collect()
	r.step("buffer keeps reference", heap.Live(keep), fmt.Sprintf("heap=%d", heap.Len()))
	r.step("buffer nulls destroyed", buf.Refs[1] == nil, fmt.Sprintf("buffers=%d", b.Stats().Buffers))
	b.Reclaim(snap)
	heap.Collect()
	r.step("untracked buffer", !heap.Live(keep), fmt.Sprintf("heap=%d", heap.Len()))

	s := b.Stats()
	fmt.Fprintf(r.out, "handles=%d cached=%d roots=%d links=%d buffers=%d\n",
		s.Handles, s.Cached, s.Roots, s.Links, s.Buffers)
	return nil
}

func bindTypes(b *bridge.Bridge) error {
	for _, err := range []error{
		bridge.DefineType[*Actor](b, "Actor", bridge.TypeDef{Bases: b.Types().Bases("Actor")}),
		bridge.DefineType[*Pawn](b, "Pawn", bridge.TypeDef{Bases: b.Types().Bases("Pawn")}),
		bridge.DefineType[*Transform](b, "Transform", bridge.TypeDef{Bases: b.Types().Bases("Transform")}),
		bridge.DefineType[*Texture](b, "Texture", bridge.TypeDef{Bases: b.Types().Bases("Texture")}),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
