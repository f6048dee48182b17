package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/index"
	"git.home.luguber.info/inful/blogkeeper/internal/metrics"
)

// ScanCmd implements the 'scan' command.
type ScanCmd struct {
	Index   string `help:"Index database path" default:".blogkeeper/index.db"`
	NoIndex bool   `name:"no-index" help:"Report only; record nothing"`
	Format  string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Prune   int    `help:"After recording, keep only the newest N scans (0 keeps all)"`
}

// Run executes the scan command.
func (cmd *ScanCmd) Run(_ *Global, root *CLI) error {
	started := time.Now()
	v, err := root.loadView("")
	if err != nil {
		return err
	}
	finished := time.Now()

	var rec *index.ScanRecord
	prevHash := ""

	if !cmd.NoIndex {
		ix, err := openIndex(cmd.Index)
		if err != nil {
			return err
		}
		defer func() { _ = ix.Close() }()

		ctx := context.Background()
		if latest, err := ix.LatestScan(ctx); err == nil {
			prevHash = latest.TreeHash
		} else if !errors.Is(err, index.ErrNoScans) {
			return err
		}

		rec, err = ix.RecordScan(ctx, v.Corpus, v.Manifest, string(metrics.TriggerManual), started, finished)
		if err != nil {
			return err
		}

		if cmd.Prune > 0 {
			if err := ix.Prune(ctx, cmd.Prune); err != nil {
				return err
			}
		}
	}

	if cmd.Format == "json" {
		return cmd.printJSON(v, rec, prevHash)
	}
	cmd.printText(v, rec, prevHash, finished.Sub(started))
	return nil
}

func (cmd *ScanCmd) printText(v *view, rec *index.ScanRecord, prevHash string, took time.Duration) {
	fmt.Printf("Scanned %s in %s\n\n", v.ContentDir, took.Round(time.Millisecond))
	fmt.Printf("  Posts:     %d (%d published, %d drafts)\n",
		v.Corpus.Len(), len(v.Corpus.Published()), len(v.Corpus.Drafts()))
	if sections := v.Corpus.Sections(); len(sections) > 0 {
		fmt.Printf("  Sections:  %s\n", strings.Join(sections, ", "))
	}
	if failures := v.Corpus.Failures(); len(failures) > 0 {
		fmt.Printf("  Failures:  %d\n", len(failures))
		for _, f := range failures {
			fmt.Printf("    %s: %v\n", f.File.RelativePath, f.Err)
		}
	}
	fmt.Printf("  Tree hash: %s%s\n", shortHash(v.Manifest.Hash), treeHashNote(v.Manifest.Hash, prevHash))

	if rec != nil {
		fmt.Printf("\nRecorded scan %s\n", rec.ID)
	}
}

func (cmd *ScanCmd) printJSON(v *view, rec *index.ScanRecord, prevHash string) error {
	out := struct {
		*index.ScanRecord
		ContentDir string `json:"content_dir"`
		Changed    bool   `json:"changed"`
	}{
		ScanRecord: rec,
		ContentDir: v.ContentDir,
		Changed:    prevHash != v.Manifest.Hash,
	}
	if out.ScanRecord == nil {
		out.ScanRecord = &index.ScanRecord{
			TreeHash:      v.Manifest.Hash,
			PostsTotal:    v.Corpus.Len(),
			Published:     len(v.Corpus.Published()),
			Drafts:        len(v.Corpus.Drafts()),
			ParseFailures: len(v.Corpus.Failures()),
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func treeHashNote(current, prev string) string {
	switch prev {
	case "":
		return ""
	case current:
		return " (unchanged)"
	default:
		return " (changed)"
	}
}
