package view

import (
	"fmt"
	"slices"

	"github.com/hakim/vulntriage/internal/models"
)

// NodeKind is the level of a tree node
type NodeKind int

const (
	KindSeverity NodeKind = iota
	KindVulnerability
	KindInstance
)

func (k NodeKind) String() string {
	switch k {
	case KindSeverity:
		return "severity"
	case KindVulnerability:
		return "vulnerability"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// unknownGroup is the severity node id suffix for unrecognised severities.
const unknownGroup = "unknown"

// Node is one entry of the severity → vulnerability → instance outline.
type Node struct {
	ID       string
	Kind     NodeKind
	Label    string // full text
	Short    string // truncated for the tree
	Icon     string
	Count    int // instance count, 0 for leaves
	Severity models.Severity
	Status   models.FixStatus // leaves only

	// InstanceID is set on leaves.
	InstanceID int

	Children []*Node
}

// Leaf reports whether the node is an instance.
func (n *Node) Leaf() bool {
	return n.Kind == KindInstance
}

// Tree is the grouped outline of a report
type Tree struct {
	Groups []*Node
	Total  int // sum of the group counts
}

// SeverityNodeID returns the node id of a severity group.
func SeverityNodeID(s models.Severity) string {
	if !s.Known() {
		return "severity-" + unknownGroup
	}
	return "severity-" + string(s)
}

// VulnNodeID returns the node id of a vulnerability.
func VulnNodeID(id int) string {
	return fmt.Sprintf("vuln-%d", id)
}

// InstanceNodeID returns the node id of an instance leaf.
func InstanceNodeID(id int) string {
	return fmt.Sprintf("instance-%d", id)
}

// BuildTree groups vulnerabilities by severity in the fixed display order.
// Severities without vulnerabilities are omitted. Vulnerabilities with an
// unrecognised severity are collected in a trailing "Unknown" group so that
// the group counts always add up to the report's instance total.
func BuildTree(vulns []models.Vulnerability) Tree {
	groups := make(map[string][]models.Vulnerability)
	for _, v := range vulns {
		key := unknownGroup
		if v.Severity.Known() {
			key = string(v.Severity)
		}
		groups[key] = append(groups[key], v)
	}

	order := make([]string, 0, len(models.SeverityOrder)+1)
	for _, s := range models.SeverityOrder {
		order = append(order, string(s))
	}
	order = append(order, unknownGroup)

	var tree Tree
	for _, key := range order {
		members := groups[key]
		if len(members) == 0 {
			continue
		}

		sev := models.Severity(key)
		group := &Node{
			ID:       SeverityNodeID(sev),
			Kind:     KindSeverity,
			Label:    sev.Label(),
			Short:    sev.Label(),
			Icon:     sev.Emoji(),
			Severity: sev,
		}

		for _, v := range members {
			group.Count += v.Count()
			group.Children = append(group.Children, vulnNode(v))
		}

		tree.Total += group.Count
		tree.Groups = append(tree.Groups, group)
	}

	return tree
}

func vulnNode(v models.Vulnerability) *Node {
	node := &Node{
		ID:       VulnNodeID(v.ID),
		Kind:     KindVulnerability,
		Label:    v.Title,
		Short:    Truncate(v.Title, TreeTitleWidth),
		Icon:     "📁",
		Count:    v.Count(),
		Severity: v.Severity,
	}

	for _, inst := range v.Instances {
		node.Children = append(node.Children, &Node{
			ID:         InstanceNodeID(inst.ID),
			Kind:       KindInstance,
			Label:      inst.URL,
			Short:      Truncate(inst.URL, TreeURLWidth),
			Icon:       inst.FixStatus.Emoji(),
			Severity:   v.Severity,
			Status:     inst.FixStatus,
			InstanceID: inst.ID,
		})
	}

	return node
}

// Walk visits every node depth-first in display order.
func (t Tree) Walk(fn func(n *Node, depth int)) {
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(t.Groups, 0)
}

// BranchIDs lists every non-leaf node id in display order.
func (t Tree) BranchIDs() []string {
	var ids []string
	t.Walk(func(n *Node, _ int) {
		if !n.Leaf() {
			ids = append(ids, n.ID)
		}
	})
	return ids
}

// LeafIDs lists every instance id in display order.
func (t Tree) LeafIDs() []int {
	var ids []int
	t.Walk(func(n *Node, _ int) {
		if n.Leaf() {
			ids = append(ids, n.InstanceID)
		}
	})
	return ids
}

// TreeState is the per-view expand/collapse and active-leaf state. The zero
// value has every node expanded and nothing selected.
type TreeState struct {
	Collapsed map[string]bool `json:"collapsed,omitempty"`
	Active    int             `json:"active,omitempty"`
}

// Expanded reports whether the node with id shows its children.
func (s TreeState) Expanded(id string) bool {
	return !s.Collapsed[id]
}

// Toggle flips a branch node. Ids not in branches are ignored and Toggle
// reports false.
func (s *TreeState) Toggle(branches []string, id string) bool {
	if !slices.Contains(branches, id) {
		return false
	}
	if s.Collapsed[id] {
		delete(s.Collapsed, id)
		return true
	}
	if s.Collapsed == nil {
		s.Collapsed = make(map[string]bool)
	}
	s.Collapsed[id] = true
	return true
}

// ExpandAll expands every node regardless of its current state.
func (s *TreeState) ExpandAll() {
	s.Collapsed = nil
}

// CollapseAll collapses every branch regardless of its current state.
func (s *TreeState) CollapseAll(branches []string) {
	s.Collapsed = make(map[string]bool, len(branches))
	for _, id := range branches {
		s.Collapsed[id] = true
	}
}

// Select makes instanceID the single active leaf, replacing any previous
// one. Unknown ids leave the state untouched and Select reports false.
func (s *TreeState) Select(leaves []int, instanceID int) bool {
	if !slices.Contains(leaves, instanceID) {
		return false
	}
	s.Active = instanceID
	return true
}

// IsActive reports whether the leaf for instanceID is the active one.
func (s TreeState) IsActive(instanceID int) bool {
	return s.Active != 0 && s.Active == instanceID
}

// Prune drops state that refers to nodes no longer in the tree.
func (s *TreeState) Prune(branches []string, leaves []int) {
	for id := range s.Collapsed {
		if !slices.Contains(branches, id) {
			delete(s.Collapsed, id)
		}
	}
	if len(s.Collapsed) == 0 {
		s.Collapsed = nil
	}
	if s.Active != 0 && !slices.Contains(leaves, s.Active) {
		s.Active = 0
	}
}

// VisibleNode is a node with its depth, flattened for rendering.
type VisibleNode struct {
	*Node
	Depth    int
	Expanded bool
	Active   bool
}

// Visible flattens the tree into the rows a renderer shows, skipping the
// children of collapsed nodes.
func (t Tree) Visible(s TreeState) []VisibleNode {
	var out []VisibleNode
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			expanded := s.Expanded(n.ID)
			out = append(out, VisibleNode{
				Node:     n,
				Depth:    depth,
				Expanded: expanded,
				Active:   n.Leaf() && s.IsActive(n.InstanceID),
			})
			if expanded {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(t.Groups, 0)
	return out
}
