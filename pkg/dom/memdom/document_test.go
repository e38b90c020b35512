package memdom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagekeeper/pkg/dom"
)

const fixture = `<html><body>
<div class="ag-row" row-id="1"><div col-id="DG"><yesno-cell>Yes</yesno-cell></div></div>
<div class="ag-row ag-row-pinned" row-id="2"><div col-id="DG"><yesno-cell>No</yesno-cell></div></div>
<form>
  <py-form-group-item label="A"><div class="form-group"><textarea>  note </textarea></div></py-form-group-item>
  <py-form-group-item label="B"><input formcontrolname="phone" value="555"></py-form-group-item>
</form>
</body></html>`

func TestQuerySelector(t *testing.T) {
	doc := MustParse(fixture)

	rows := doc.QuerySelectorAll(".ag-row:not(.ag-row-pinned)")
	require.Len(t, rows, 1)
	v, ok := rows[0].Attr("row-id")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	assert.Nil(t, doc.QuerySelector("button"))
	assert.Nil(t, doc.QuerySelector("[[invalid"))
	assert.Empty(t, doc.QuerySelectorAll("[[invalid"))

	item := doc.QuerySelector(`py-form-group-item[label="A"]`)
	require.NotNil(t, item)
	assert.Equal(t, "py-form-group-item", item.TagName())
	assert.NotNil(t, item.QuerySelector("textarea"))
	assert.Nil(t, item.QuerySelector("input"))
}

func TestQuerySelectorExcludesScope(t *testing.T) {
	doc := MustParse(`<div class="x"><div class="x" id="inner"></div></div>`)
	outer := doc.QuerySelector(".x")
	require.NotNil(t, outer)

	inner := outer.QuerySelectorAll(".x")
	require.Len(t, inner, 1)
	id, _ := inner[0].Attr("id")
	assert.Equal(t, "inner", id)
}

func TestClosestAndSiblings(t *testing.T) {
	doc := MustParse(fixture)

	cell := doc.QuerySelector("yesno-cell")
	require.NotNil(t, cell)
	row := cell.Closest(".ag-row")
	require.NotNil(t, row)
	id, _ := row.Attr("row-id")
	assert.Equal(t, "1", id)
	assert.Nil(t, cell.Closest("fieldset"))

	a := doc.QuerySelector(`py-form-group-item[label="A"]`)
	b := doc.QuerySelector(`py-form-group-item[label="B"]`)
	assert.True(t, a.NextElementSibling().Same(b))
	assert.Nil(t, b.NextElementSibling())
	assert.False(t, a.Same(b))
}

func TestValue(t *testing.T) {
	doc := MustParse(fixture)

	textarea := doc.QuerySelector("textarea")
	assert.Equal(t, "  note ", textarea.Value())

	input := doc.QuerySelector("input")
	assert.Equal(t, "555", input.Value())

	require.NoError(t, input.SetValue(""))
	assert.Equal(t, "", input.Value())
	v, _ := input.Attr("value")
	assert.Equal(t, "555", v, "SetValue must not touch markup")
}

func TestStyle(t *testing.T) {
	doc := MustParse(`<div id="x" style="color: red"></div>`)
	el := doc.QuerySelector("#x")

	assert.Equal(t, "red", el.Style("color"))
	require.NoError(t, el.SetStyle("font-weight", "bold"))
	assert.Equal(t, "bold", el.Style("font-weight"))

	style, _ := el.Attr("style")
	assert.Equal(t, "color: red; font-weight: bold;", style)

	require.NoError(t, el.SetStyle("color", ""))
	require.NoError(t, el.SetStyle("font-weight", ""))
	_, ok := el.Attr("style")
	assert.False(t, ok)
}

func TestClasses(t *testing.T) {
	doc := MustParse(`<button class="btn btn-sm btn-primary"></button>`)
	btn := doc.QuerySelector("button")

	require.NoError(t, btn.RemoveClass("btn-sm", "btn-primary", "missing"))
	require.NoError(t, btn.AddClass("prominent", "btn"))
	class, _ := btn.Attr("class")
	assert.Equal(t, "btn prominent", class)
	assert.True(t, btn.HasClass("prominent"))
	assert.False(t, btn.HasClass("btn-sm"))
}

func TestObserveAndFlush(t *testing.T) {
	doc := MustParse(fixture)
	body := doc.Body()

	// Nothing is recorded without an observer.
	require.NoError(t, doc.AppendHTML(body, `<p>one</p>`))
	assert.Equal(t, 0, doc.Pending())

	var batches []dom.MutationBatch
	stop := doc.Observe(func(b dom.MutationBatch) { batches = append(batches, b) })

	require.NoError(t, doc.AppendHTML(body, `<p>two</p><p>three</p>`))
	require.NoError(t, body.SetAttr("data-x", "1"))
	assert.Equal(t, 2, doc.Pending())

	assert.True(t, doc.Flush())
	assert.False(t, doc.Flush())
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.True(t, batches[0][0].IsStructuralAddition())
	assert.Equal(t, 2, batches[0][0].Added)
	assert.Equal(t, dom.MutationAttributes, batches[0][1].Type)

	stop()
	stop()
	require.NoError(t, doc.AppendHTML(body, `<p>four</p>`))
	assert.Equal(t, 0, doc.Pending())
}

func TestAfterRecordsMove(t *testing.T) {
	doc := MustParse(`<ul><li id="a"></li><li id="b"></li><li id="c"></li></ul>`)
	var batch dom.MutationBatch
	doc.Observe(func(b dom.MutationBatch) { batch = b })

	a := doc.QuerySelector("#a")
	c := doc.QuerySelector("#c")
	require.NoError(t, c.After(a))
	doc.Flush()

	ids := []string{}
	for _, li := range doc.QuerySelectorAll("li") {
		id, _ := li.Attr("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
	require.Len(t, batch, 2)
	assert.Equal(t, 1, batch[0].Removed)
	assert.Equal(t, 1, batch[1].Added)

	ul := doc.QuerySelector("ul")
	assert.Error(t, a.After(ul), "moving an ancestor after its descendant must fail")
}

func TestSettle(t *testing.T) {
	doc := MustParse(`<div id="root"></div>`)
	root := doc.QuerySelector("#root")
	count := 0
	doc.Observe(func(b dom.MutationBatch) {
		if count < 3 {
			count++
			_ = doc.AppendHTML(root, `<span></span>`)
		}
	})

	require.NoError(t, doc.AppendHTML(root, `<span></span>`))
	rounds, stable := doc.Settle(10)
	assert.True(t, stable)
	assert.Equal(t, 4, rounds)

	doc.Observe(func(b dom.MutationBatch) { _ = doc.AppendHTML(root, `<i></i>`) })
	require.NoError(t, doc.AppendHTML(root, `<span></span>`))
	rounds, stable = doc.Settle(5)
	assert.False(t, stable)
	assert.Equal(t, 5, rounds)
}

func TestDispatchEventBubbles(t *testing.T) {
	doc := MustParse(fixture)
	textarea := doc.QuerySelector("textarea")
	form := doc.QuerySelector("form")

	var order []string
	require.NoError(t, textarea.AddEventListener("input", func() { order = append(order, "textarea") }))
	require.NoError(t, form.AddEventListener("input", func() { order = append(order, "form") }))
	require.NoError(t, form.AddEventListener("change", func() { order = append(order, "change") }))

	require.NoError(t, doc.Type(textarea, "hello"))
	assert.Equal(t, []string{"textarea", "form"}, order)
	assert.Equal(t, "hello", textarea.Value())
	assert.Equal(t, 1, textarea.(*Element).ListenerCount("input"))
}

func TestSetTextAndRemove(t *testing.T) {
	doc := MustParse(fixture)
	var batches []dom.MutationBatch
	doc.Observe(func(b dom.MutationBatch) { batches = append(batches, b) })

	cell := doc.QuerySelector("yesno-cell")
	require.NoError(t, doc.SetText(cell, "No"))
	assert.Equal(t, "No", cell.Text())

	require.NoError(t, doc.Remove(doc.QuerySelector("form")))
	assert.Nil(t, doc.QuerySelector("textarea"))

	doc.Flush()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.True(t, batches[0][0].IsStructuralAddition())
	assert.False(t, batches[0][1].IsStructuralAddition())
}
