// Package pipeline drives the fetch/copy cycle that moves one query's result
// set into Parquet: it builds the per-column plan, binds the row-set buffer
// to the source cursor, and writes one row group per fetched batch.
package pipeline

import (
	"github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/rowset"
	"github.com/quarrydata/quarry/pkg/strategy"
)

// ColumnPlan binds one projected column to its fetch strategy, staging-buffer
// shape, and Parquet schema node.
type ColumnPlan struct {
	Descriptor strategy.ColumnDescriptor
	Strategy   strategy.ColumnFetchStrategy
	Buffer     rowset.ColumnBufferDescription
	Node       schema.Node
}

// Plan is the resolved per-column layout for one transfer.
type Plan struct {
	Columns []ColumnPlan
	Fields  schema.FieldList
}

// BuildPlan selects a strategy for every descriptor and materializes the
// schema nodes the sink emits once before data flows.
func BuildPlan(descs []strategy.ColumnDescriptor, caps strategy.DriverCapabilities) (*Plan, error) {
	plan := &Plan{
		Columns: make([]ColumnPlan, 0, len(descs)),
		Fields:  make(schema.FieldList, 0, len(descs)),
	}
	for _, desc := range descs {
		s := strategy.ForColumn(desc, caps)
		node, err := s.SchemaNode(desc.Name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal,
				"failed to build schema node for column "+desc.Name)
		}
		plan.Columns = append(plan.Columns, ColumnPlan{
			Descriptor: desc,
			Strategy:   s,
			Buffer:     s.BufferDescription(),
			Node:       node,
		})
		plan.Fields = append(plan.Fields, node)
	}
	return plan, nil
}

// BufferDescriptions returns the staging-buffer shapes in column order.
func (p *Plan) BufferDescriptions() []rowset.ColumnBufferDescription {
	descs := make([]rowset.ColumnBufferDescription, len(p.Columns))
	for i, col := range p.Columns {
		descs[i] = col.Buffer
	}
	return descs
}

// ColumnSummary is the JSON-able description of one planned column.
type ColumnSummary struct {
	Name          string `json:"name"`
	Nullable      bool   `json:"nullable"`
	PhysicalType  string `json:"physical_type"`
	ConvertedType string `json:"converted_type,omitempty"`
	Precision     int    `json:"precision,omitempty"`
	Scale         int    `json:"scale,omitempty"`
	TypeLength    int    `json:"type_length,omitempty"`
	BufferKind    string `json:"buffer_kind"`
	BufferMaxLen  int    `json:"buffer_max_len,omitempty"`
}

// Summary renders the plan for inspection.
func (p *Plan) Summary() []ColumnSummary {
	out := make([]ColumnSummary, 0, len(p.Columns))
	for _, col := range p.Columns {
		s := ColumnSummary{
			Name:         col.Descriptor.Name,
			Nullable:     col.Descriptor.Nullable,
			BufferKind:   col.Buffer.Kind.String(),
			BufferMaxLen: col.Buffer.MaxStrLen,
		}
		if pn, ok := col.Node.(*schema.PrimitiveNode); ok {
			s.PhysicalType = pn.PhysicalType().String()
			if pn.ConvertedType() != schema.ConvertedTypes.None {
				s.ConvertedType = pn.ConvertedType().String()
			}
			if meta := pn.DecimalMetadata(); meta.IsSet {
				s.Precision = int(meta.Precision)
				s.Scale = int(meta.Scale)
			}
			s.TypeLength = pn.TypeLength()
		}
		out = append(out, s)
	}
	return out
}
