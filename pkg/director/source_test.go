package director

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStrategy struct{ h, est int }

func (s fixedStrategy) Height(Row, IndexPath) int          { return s.h }
func (s fixedStrategy) EstimatedHeight(Row, IndexPath) int { return s.est }

type recordingRegisterer struct{ ids []string }

func (r *recordingRegisterer) Register(id string) { r.ids = append(r.ids, id) }

type lines int

func (l lines) Height() int { return int(l) }

func TestDidSelect_ClickNonNilSuppressesSelect(t *testing.T) {
	clicked := 0
	f := newFixture(t, nil, nil, item{name: "a", click: func(ActionContext) any {
		clicked++
		return true
	}})

	f.d.DidSelect(IndexPath{0, 0})

	assert.Equal(t, 1, clicked)
	assert.Empty(t, f.selected, "select handler must not run")
	assert.Empty(t, f.widget.deselected, "row stays selected")
}

func TestDidSelect_ClickNilFallsThroughToSelect(t *testing.T) {
	f := newFixture(t, nil, nil, item{name: "a", click: func(ActionContext) any { return nil }})

	f.d.DidSelect(IndexPath{0, 0})

	assert.Equal(t, []string{"a"}, f.selected)
	assert.Empty(t, f.widget.deselected)
}

func TestDidSelect_StaticRow(t *testing.T) {
	var hits []string
	f := newFixture(t, nil, []Section{NewSection(staticRow("after", &hits))}, item{name: "a"})

	f.d.DidSelect(IndexPath{1, 0})
	assert.Equal(t, []string{"after"}, hits)
}

func TestInvoke_UnregisteredKindIsNoop(t *testing.T) {
	f := newFixture(t, nil, nil, item{name: "a"})
	var got any
	assert.NotPanics(t, func() {
		got = f.d.Invoke(CustomAction("share"), nil, IndexPath{0, 0})
	})
	assert.Nil(t, got)
	assert.False(t, f.d.HasAction(ActionDeselect, IndexPath{0, 0}))
}

func TestHeightForRow_Precedence(t *testing.T) {
	handler := NewRow("h", nil).WithHeight(2).On(ActionHeight, func(ActionContext) any { return 5 })
	static := NewRow("s", nil).WithHeight(2)
	plain := NewRow("p", nil)
	before := []Section{NewSection(handler, static, plain)}

	f := newFixture(t, before, nil)
	assert.Equal(t, 5, f.d.HeightForRow(IndexPath{0, 0}))
	assert.Equal(t, 2, f.d.HeightForRow(IndexPath{0, 1}))
	assert.Equal(t, Automatic, f.d.HeightForRow(IndexPath{0, 2}))

	f.d.heightStrategy = fixedStrategy{h: 3, est: 4}
	assert.Equal(t, 3, f.d.HeightForRow(IndexPath{0, 2}))
	assert.Equal(t, 4, f.d.EstimatedHeightForRow(IndexPath{0, 2}))
}

func TestEstimatedHeightForRow_RegistersReuseID(t *testing.T) {
	reg := &recordingRegisterer{}
	f := newFixture(t, nil, nil, item{name: "a"})
	f.d.registerer = reg

	assert.Equal(t, Automatic, f.d.EstimatedHeightForRow(IndexPath{0, 0}))
	assert.Equal(t, []string{"item-list"}, reg.ids)
}

func TestWillSelect(t *testing.T) {
	redirect := NewRow("r", nil).On(ActionWillSelect, func(ActionContext) any { return IndexPath{0, 2} })
	junk := NewRow("j", nil).On(ActionWillSelect, func(ActionContext) any { return "nope" })
	plain := NewRow("p", nil)
	f := newFixture(t, []Section{NewSection(redirect, junk, plain)}, nil)

	assert.Equal(t, IndexPath{0, 2}, f.d.WillSelect(IndexPath{0, 0}))
	assert.Equal(t, IndexPath{0, 1}, f.d.WillSelect(IndexPath{0, 1}))
	assert.Equal(t, IndexPath{0, 2}, f.d.WillSelect(IndexPath{0, 2}))
}

func TestShouldHighlight_DefaultsTrue(t *testing.T) {
	off := NewRow("off", nil).On(ActionShouldHighlight, func(ActionContext) any { return false })
	f := newFixture(t, []Section{NewSection(off, NewRow("on", nil))}, nil)

	assert.False(t, f.d.ShouldHighlight(IndexPath{0, 0}))
	assert.True(t, f.d.ShouldHighlight(IndexPath{0, 1}))
}

func TestCellForRow_ConfiguresDataCell(t *testing.T) {
	configured := 0
	row := NewRow("static", nil).On(ActionConfigure, func(ctx ActionContext) any {
		configured++
		require.NotNil(t, ctx.Cell)
		return nil
	})
	f := newFixture(t, []Section{NewSection(row)}, nil, item{name: "first"})

	cell := f.d.CellForRow(IndexPath{1, 0})
	require.IsType(t, &testCell{}, cell)
	assert.Equal(t, "first", cell.(*testCell).title)
	assert.Equal(t, "item-list", cell.ReuseID())

	f.d.CellForRow(IndexPath{0, 0})
	assert.Equal(t, 1, configured)
}

func TestCellAction_RoutesByCell(t *testing.T) {
	var got IndexPath
	row := NewRow("share", nil).On(CustomAction("share"), func(ctx ActionContext) any {
		got = ctx.Path
		return nil
	})
	f := newFixture(t, nil, []Section{NewSection(NewRow("x", nil), row)})

	cell := f.d.CellForRow(IndexPath{1, 1})
	f.d.CellAction(cell, "share")
	assert.Equal(t, IndexPath{1, 1}, got)

	// Unknown cells are ignored.
	assert.NotPanics(t, func() { f.d.CellAction(&testCell{id: "ghost"}, "share") })
}

func TestEditing(t *testing.T) {
	deleted := 0
	deletable := NewRow("d", nil).On(ActionClickDelete, func(ActionContext) any {
		deleted++
		return nil
	})
	menu := NewRow("m", nil).WithEditActions(EditAction{Title: "Archive", Key: "archive"})
	f := newFixture(t, []Section{NewSection(deletable, menu, NewRow("p", nil))}, nil)

	assert.True(t, f.d.CanEdit(IndexPath{0, 0}))
	assert.True(t, f.d.CanEdit(IndexPath{0, 1}))
	assert.False(t, f.d.CanEdit(IndexPath{0, 2}))
	assert.Len(t, f.d.EditActions(IndexPath{0, 1}), 1)

	f.d.CommitEdit(EditInsert, IndexPath{0, 0})
	f.d.CommitEdit(EditDelete, IndexPath{0, 0})
	assert.Equal(t, 1, deleted)
}

func TestHeadersAndFooters(t *testing.T) {
	before := []Section{{HeaderTitle: "Pinned", FooterView: lines(2), HeaderHeight: 1}}
	after := []Section{{FooterTitle: "End", FooterHeight: 3, FooterView: lines(9)}}
	f := newFixture(t, before, after)
	f.d.dataChrome = Chrome{HeaderTitle: "Results", HeaderHeight: 1, HeaderView: lines(4)}

	assert.Equal(t, "Pinned", f.d.TitleForHeader(0))
	assert.Equal(t, 1, f.d.HeightForHeader(0))
	assert.Equal(t, 2, f.d.HeightForFooter(0))
	assert.Equal(t, lines(2), f.d.ViewForFooter(0))

	assert.Equal(t, "Results", f.d.TitleForHeader(1))
	assert.Equal(t, 4, f.d.HeightForHeader(1))
	assert.Equal(t, 0, f.d.HeightForFooter(1))
	assert.Nil(t, f.d.ViewForFooter(1))

	assert.Equal(t, "End", f.d.TitleForFooter(2))
	assert.Equal(t, 3, f.d.HeightForFooter(2))
	assert.Equal(t, "", f.d.TitleForHeader(9))
}
