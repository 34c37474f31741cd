package notes

import (
	"fmt"

	"github.com/hoffkamp/bureau/internal/model"
)

// SharingResolver computes the acting user's visible note set: owned notes
// plus notes individually shared to the user plus notes owned by any
// global granter, deduplicated by note id. An individual share wins over a
// global one because it carries permission granularity.
type SharingResolver struct {
	persist Persistence
	userID  int64
}

func NewSharingResolver(persist Persistence, userID int64) *SharingResolver {
	return &SharingResolver{persist: persist, userID: userID}
}

// Visible resolves and annotates the full visible set.
func (r *SharingResolver) Visible(includeArchived bool) ([]model.Note, error) {
	owned, err := r.persist.NotesByOwner(r.userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("load owned notes: %w", err)
	}

	grants, err := r.persist.SharesForGrantee(r.userID)
	if err != nil {
		return nil, fmt.Errorf("load individual shares: %w", err)
	}
	grantByNote := make(map[int64]model.NoteShare, len(grants))
	sharedIDs := make([]int64, 0, len(grants))
	for _, g := range grants {
		grantByNote[g.NoteID] = g
		sharedIDs = append(sharedIDs, g.NoteID)
	}

	shared, err := r.persist.NotesByIDs(sharedIDs)
	if err != nil {
		return nil, fmt.Errorf("load shared notes: %w", err)
	}

	granters, err := r.persist.GlobalGranters(r.userID)
	if err != nil {
		return nil, fmt.Errorf("load global granters: %w", err)
	}
	global, err := r.persist.NotesByOwners(granters)
	if err != nil {
		return nil, fmt.Errorf("load globally shared notes: %w", err)
	}

	seen := make(map[int64]bool, len(owned)+len(shared)+len(global))
	visible := make([]model.Note, 0, len(owned)+len(shared)+len(global))

	ownedIDs := make([]int64, 0, len(owned))
	for _, n := range owned {
		n.CanEdit = true
		seen[n.ID] = true
		visible = append(visible, n)
		ownedIDs = append(ownedIDs, n.ID)
	}
	for _, n := range shared {
		if n.OwnerID == r.userID || seen[n.ID] {
			continue
		}
		n.IsShared = true
		n.CanEdit = grantByNote[n.ID].Permission == model.PermissionEdit
		seen[n.ID] = true
		visible = append(visible, n)
	}
	for _, n := range global {
		if n.OwnerID == r.userID || seen[n.ID] {
			continue
		}
		n.IsShared = true
		seen[n.ID] = true
		visible = append(visible, n)
	}

	if err := r.annotate(visible, ownedIDs); err != nil {
		return nil, err
	}
	return visible, nil
}

// annotate attaches owner profiles to foreign notes and grantee lists to
// owned notes.
func (r *SharingResolver) annotate(visible []model.Note, ownedIDs []int64) error {
	outgoing, err := r.persist.SharesForNotes(ownedIDs)
	if err != nil {
		return fmt.Errorf("load outgoing shares: %w", err)
	}
	granteesByNote := make(map[int64][]int64)
	for _, sh := range outgoing {
		granteesByNote[sh.NoteID] = append(granteesByNote[sh.NoteID], sh.GranteeID)
	}

	idSet := make(map[int64]bool)
	for i := range visible {
		if visible[i].IsShared {
			idSet[visible[i].OwnerID] = true
		}
		for _, g := range granteesByNote[visible[i].ID] {
			idSet[g] = true
		}
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	profiles, err := r.persist.ResolveProfiles(ids)
	if err != nil {
		return fmt.Errorf("resolve profiles: %w", err)
	}

	for i := range visible {
		n := &visible[i]
		if n.IsShared {
			if p, ok := profiles[n.OwnerID]; ok {
				n.Owner = &p
			}
			continue
		}
		grantees := granteesByNote[n.ID]
		n.ShareCount = len(grantees)
		for _, g := range grantees {
			if p, ok := profiles[g]; ok {
				n.SharedWith = append(n.SharedWith, p)
			}
		}
	}
	return nil
}
