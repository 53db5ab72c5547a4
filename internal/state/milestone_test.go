package state

import "testing"

func TestCreateAndListMilestones_PhaseOrder(t *testing.T) {
	db := setupTestDB(t)

	db.CreateMilestone(&Milestone{ID: "m2", Name: "api layer", Phase: 2})
	db.CreateMilestone(&Milestone{ID: "m1", Name: "data model", Phase: 1, EstimatedUsage: 5000})
	db.CreateMilestone(&Milestone{ID: "m3", Name: "polish", Phase: 3})

	milestones, err := db.ListMilestones()
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	if len(milestones) != 3 {
		t.Fatalf("milestones = %d, want 3", len(milestones))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if milestones[i].ID != want {
			t.Errorf("milestones[%d] = %s, want %s", i, milestones[i].ID, want)
		}
	}
	if milestones[0].EstimatedUsage != 5000 {
		t.Errorf("estimated usage = %d, want 5000", milestones[0].EstimatedUsage)
	}
}

func TestSetMilestoneItems(t *testing.T) {
	db := setupTestDB(t)

	db.CreateMilestone(&Milestone{ID: "m1", Name: "data model", Phase: 1})
	if err := db.SetMilestoneItems("m1", []string{"w1", "w2"}); err != nil {
		t.Fatalf("SetMilestoneItems failed: %v", err)
	}

	got, err := db.GetMilestone("m1")
	if err != nil {
		t.Fatalf("GetMilestone failed: %v", err)
	}
	if len(got.ItemIDs) != 2 || got.ItemIDs[0] != "w1" || got.ItemIDs[1] != "w2" {
		t.Errorf("item ids = %v, want [w1 w2]", got.ItemIDs)
	}
}

func TestSetMilestoneStatus(t *testing.T) {
	db := setupTestDB(t)

	db.CreateMilestone(&Milestone{ID: "m1", Name: "data model", Phase: 1})
	if err := db.SetMilestoneStatus("m1", ItemMerged); err != nil {
		t.Fatalf("SetMilestoneStatus failed: %v", err)
	}

	got, _ := db.GetMilestone("m1")
	if got.Status != ItemMerged {
		t.Errorf("status = %q, want MERGED", got.Status)
	}
}
