package ports_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

func TestListOptions_Apply(t *testing.T) {
	now := time.Now()
	active := true
	all := []*domain.Workflow{
		{ID: "b", Trigger: domain.TriggerManual, CreatedAt: now},
		{ID: "a", Trigger: domain.TriggerManual, CreatedAt: now},
		{ID: "old", Trigger: domain.TriggerSchedule, CreatedAt: now.Add(-time.Hour), IsActive: true},
		{ID: "new", Trigger: domain.TriggerManual, CreatedAt: now.Add(time.Hour), IsActive: true},
	}

	ids := func(wfs []*domain.Workflow) []string {
		var out []string
		for _, wf := range wfs {
			out = append(out, wf.ID)
		}
		return out
	}

	assert.Equal(t, []string{"new", "a", "b", "old"}, ids(ports.ListOptions{}.Apply(all)))
	assert.Equal(t, []string{"new", "a", "b"}, ids(ports.ListOptions{Trigger: domain.TriggerManual}.Apply(all)))
	assert.Equal(t, []string{"new", "old"}, ids(ports.ListOptions{Active: &active}.Apply(all)))
	assert.Equal(t, []string{"new"}, ids(ports.ListOptions{Limit: 1}.Apply(all)))
	assert.Empty(t, ports.ListOptions{Trigger: domain.TriggerInventoryLow}.Apply(all))
}
