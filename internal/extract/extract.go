// Package extract walks parsed configuration trees and collects the
// entity and service references they contain. It works on the untyped
// map[string]any / []any shapes produced by yaml.Unmarshal, so the same
// walker handles automations, scripts, and dashboard cards alike.
package extract

import "strings"

// Reference-bearing key names. entity_id appears in triggers, conditions,
// and service targets; entity on single-entity cards; entities on
// Lovelace list cards, where string items and {entity: ...} mappings
// both appear; the latter are caught by normal recursion.
const (
	keyEntityID = "entity_id"
	keyEntity   = "entity"
	keyEntities = "entities"
	keyService  = "service"
)

// EntityIDs returns every entity identifier referenced anywhere in tree.
// The walk descends into all mappings and sequences, which covers
// choose/conditions/sequence branches and nested stack cards without
// special cases. Malformed shapes contribute nothing.
func EntityIDs(tree any) map[string]struct{} {
	ids := make(map[string]struct{})
	walkEntities(tree, ids)
	return ids
}

// FromAutomations unions the entity references of a whole automation
// collection. Used by the inventory analyzer to build the automated set.
func FromAutomations(automations []map[string]any) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, a := range automations {
		walkEntities(a, ids)
	}
	return ids
}

func walkEntities(node any, ids map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for key, value := range v {
			switch key {
			case keyEntityID:
				collectScalarOrList(value, ids)
			case keyEntity:
				collect(value, ids)
			case keyEntities:
				if items, ok := value.([]any); ok {
					for _, item := range items {
						collect(item, ids)
					}
				}
			}
			walkEntities(value, ids)
		}
	case []any:
		for _, item := range v {
			walkEntities(item, ids)
		}
	}
}

func collectScalarOrList(value any, ids map[string]struct{}) {
	if items, ok := value.([]any); ok {
		for _, item := range items {
			collect(item, ids)
		}
		return
	}
	collect(value, ids)
}

// collect records value if it looks like a domain.object_id identifier.
func collect(value any, ids map[string]struct{}) {
	s, ok := value.(string)
	if !ok || !strings.Contains(s, ".") {
		return
	}
	ids[s] = struct{}{}
}

// Services returns every domain.service string found under a service key.
func Services(tree any) map[string]struct{} {
	services := make(map[string]struct{})
	walkServices(tree, services)
	return services
}

func walkServices(node any, services map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for key, value := range v {
			if key == keyService {
				if s, ok := value.(string); ok && s != "" {
					services[s] = struct{}{}
				}
			}
			walkServices(value, services)
		}
	case []any:
		for _, item := range v {
			walkServices(item, services)
		}
	}
}

// Domain returns the domain prefix of an entity identifier, or "" when
// the identifier has no dot separator.
func Domain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return ""
}
