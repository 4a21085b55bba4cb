package browser

import (
	"context"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"webuser/internal/entity"
	"webuser/pkg/apperr"
	"webuser/pkg/logg"
	"webuser/pkg/tracing"
)

// Elements snapshots the visible interactive elements of the current
// page, each with an XPath usable as a locator for the other
// operations.
func (s *Session) Elements(ctx context.Context) (elements []entity.Element, err error) {
	const op = "Elements"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return nil, err
	}

	s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(5000),
	})

	result, err := s.page.Evaluate(snapshotScript)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	rawList, ok := result.([]interface{})
	if !ok {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
	}

	elements = make([]entity.Element, 0, len(rawList))

	for _, item := range rawList {
		raw, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		elem := entity.Element{
			Tag:        getString(raw, "tag"),
			Text:       strings.TrimSpace(getString(raw, "text")),
			XPath:      getString(raw, "xpath"),
			Visible:    true,
			Clickable:  getBool(raw, "clickable"),
			Attributes: make(map[string]string),
			BoundingBox: entity.BoundingBox{
				X:      getFloat(raw, "x"),
				Y:      getFloat(raw, "y"),
				Width:  getFloat(raw, "width"),
				Height: getFloat(raw, "height"),
			},
		}

		if attrs, ok := raw["attributes"].(map[string]interface{}); ok {
			for k, v := range attrs {
				if str, ok := v.(string); ok {
					elem.Attributes[k] = str
				}
			}
		}

		elements = append(elements, elem)
	}

	return elements, nil
}

// snapshotScript walks the DOM for interactive elements and builds a
// positional XPath for each one.
const snapshotScript = `(() => {
	try {
		const result = [];
		const tags = ['a', 'button', 'input', 'select', 'textarea', 'label'];

		const buildXPath = (el) => {
			const parts = [];
			let node = el;
			while (node && node.nodeType === Node.ELEMENT_NODE) {
				const tag = node.tagName.toLowerCase();
				if (node.id) {
					parts.unshift("*[@id='" + node.id + "']");
					break;
				}
				let index = 1;
				let sibling = node.previousElementSibling;
				while (sibling) {
					if (sibling.tagName === node.tagName) index++;
					sibling = sibling.previousElementSibling;
				}
				parts.unshift(tag + '[' + index + ']');
				node = node.parentElement;
			}
			return '//' + parts.join('/');
		};

		for (const tag of tags) {
			for (const el of document.getElementsByTagName(tag)) {
				const rect = el.getBoundingClientRect();
				const style = window.getComputedStyle(el);

				const visible = (
					rect.width > 0 &&
					rect.height > 0 &&
					style.display !== 'none' &&
					style.visibility !== 'hidden' &&
					style.opacity !== '0'
				);
				if (!visible) continue;

				let text = '';
				if (el.value) {
					text = String(el.value);
				} else if (el.innerText && el.innerText.trim()) {
					text = el.innerText;
				} else if (el.getAttribute('aria-label')) {
					text = el.getAttribute('aria-label');
				}
				text = text.trim();
				if (text.length > 200) {
					text = text.substring(0, 200) + '...';
				}

				const attrs = {};
				if (el.type) attrs.type = el.type;
				if (el.name) attrs.name = el.name;
				if (el.placeholder) attrs.placeholder = el.placeholder.substring(0, 50);
				if (el.href) attrs.href = String(el.href).substring(0, 100);
				const role = el.getAttribute('role');
				if (role) attrs.role = role;

				const clickable = (
					['a', 'button', 'input', 'select'].includes(tag) ||
					role === 'button' ||
					role === 'link' ||
					el.onclick !== null ||
					style.cursor === 'pointer'
				);

				result.push({
					tag: tag,
					text: text,
					xpath: buildXPath(el),
					attributes: attrs,
					clickable: clickable,
					x: Math.round(rect.left + rect.width / 2),
					y: Math.round(rect.top + rect.height / 2),
					width: Math.round(rect.width),
					height: Math.round(rect.height)
				});
			}
		}

		return result;
	} catch (e) {
		return [];
	}
})()`

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}

	if v, ok := m[key].(int); ok {
		return float64(v)
	}

	return 0
}
