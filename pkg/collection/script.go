package collection

import (
	"fmt"

	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// Script templates. They read the collection as ctx._source.foods and treat a missing
// field as empty. Setting ctx.op = 'noop' makes the store report NOOP; for UpdateFields
// that marks the target item as missing.
const (
	appendSource = `if (ctx._source.foods == null) { ctx._source.foods = new ArrayList(); }
ctx._source.foods.add(params.item);`

	updateFieldsSource = `def target = null;
if (ctx._source.foods != null) {
  for (def food : ctx._source.foods) {
    if (food.id == params.item.id) { target = food; break; }
  }
}
if (target == null) {
  ctx.op = 'noop';
} else {
  target.name = params.item.name;
  target.cost = params.item.cost;
  target.description = params.item.description;
  target.imageUrl = params.item.imageUrl;
}`

	removeByKeySource = `if (ctx._source.foods == null || !ctx._source.foods.removeIf(food -> food.id == params.id)) {
  ctx.op = 'noop';
}`

	reorderSource = `def sorted = new ArrayList();
if (ctx._source.foods != null) {
  for (def id : params.ids) {
    for (def food : ctx._source.foods) {
      if (food.id == id) { sorted.add(food); break; }
    }
  }
}
ctx._source.foods = sorted;`
)

// BuildScript translates op into its script template and bound parameters.
func BuildScript(op Operation) (document.Script, error) {
	if op.parentKey == "" {
		return document.Script{}, fmt.Errorf("%w: missing parent key", ErrMalformedOperation)
	}

	switch op.kind {
	case KindAppend:
		if op.item.ID == "" {
			return document.Script{}, fmt.Errorf("%w: append without item id", ErrMalformedOperation)
		}
		return painless(appendSource, map[string]interface{}{"item": itemParams(op.item)}), nil
	case KindUpdateFields:
		if op.item.ID == "" {
			return document.Script{}, fmt.Errorf("%w: update without item id", ErrMalformedOperation)
		}
		return painless(updateFieldsSource, map[string]interface{}{"item": itemParams(op.item)}), nil
	case KindRemoveByKey:
		if op.id == "" {
			return document.Script{}, fmt.Errorf("%w: remove without item id", ErrMalformedOperation)
		}
		return painless(removeByKeySource, map[string]interface{}{"id": op.id}), nil
	case KindReorder:
		ids := make([]string, len(op.ids))
		copy(ids, op.ids)
		return painless(reorderSource, map[string]interface{}{"ids": ids}), nil
	default:
		return document.Script{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedOperation, op.kind)
	}
}

func painless(source string, params map[string]interface{}) document.Script {
	return document.Script{Source: source, Lang: document.ScriptLangPainless, Params: params}
}

func itemParams(item Item) map[string]interface{} {
	params := map[string]interface{}{
		"id":          item.ID,
		"name":        item.Name,
		"cost":        item.Cost,
		"description": item.Description,
		"imageUrl":    nil,
	}
	if item.ImageURL != "" {
		params["imageUrl"] = item.ImageURL
	}
	return params
}
