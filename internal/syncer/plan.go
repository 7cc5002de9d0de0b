// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncer

import (
	"github.com/pdiddy/knowledge-sync/internal/webui"
	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// Update pairs a changed document with the remote file it replaces.
type Update struct {
	Doc    types.Document
	FileID string
}

// Plan lists the remote operations that bring the knowledge base in line
// with the working copy.
type Plan struct {
	Creates []types.Document
	Updates []Update
	Removes []types.TrackedDocument

	// Unchanged counts documents whose hash matches the ledger. They cause
	// no remote calls.
	Unchanged int
}

// Empty reports whether the plan contains no remote operations.
func (p Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Removes) == 0
}

// BuildPlan diffs scanned documents against the ledger and the remote file
// listing. Documents with an unchanged hash are skipped. A remote file whose
// name matches a scanned path missing from the ledger is adopted through a
// forced update rather than a duplicate upload. When prune is set, tracked
// documents absent from the scan are removed; untracked remote files are
// never touched.
func BuildPlan(docs []types.Document, tracked []types.TrackedDocument, remote []webui.File, prune bool) Plan {
	trackedBy := make(map[string]types.TrackedDocument, len(tracked))
	for _, t := range tracked {
		trackedBy[t.Path] = t
	}
	remoteBy := make(map[string]string, len(remote))
	for _, f := range remote {
		remoteBy[f.Name()] = f.ID
	}

	var plan Plan
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.Path] = true

		if t, ok := trackedBy[doc.Path]; ok {
			if t.SHA256 == doc.SHA256 {
				plan.Unchanged++
				continue
			}
			plan.Updates = append(plan.Updates, Update{Doc: doc, FileID: t.FileID})
			continue
		}
		if id, ok := remoteBy[doc.Path]; ok {
			plan.Updates = append(plan.Updates, Update{Doc: doc, FileID: id})
			continue
		}
		plan.Creates = append(plan.Creates, doc)
	}

	if prune {
		for _, t := range tracked {
			if !seen[t.Path] {
				plan.Removes = append(plan.Removes, t)
			}
		}
	}
	return plan
}
