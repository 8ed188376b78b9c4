// Package outline holds the block tree handed to the host document and the
// code that renders it or inserts it into a Logseq page file.
package outline

// TaskIDProperty links a block back to the task it was built from.
const TaskIDProperty = "todoistid"

// Block is one outline node. Blocks built from tasks carry TaskIDProperty;
// synthetic leaves (description, comments, attachments) have no properties.
type Block struct {
	Content    string            `json:"content" yaml:"content"`
	Children   []*Block          `json:"children" yaml:"children"`
	Properties map[string]string `json:"properties" yaml:"properties"`
}

// NewTaskBlock creates a block for the task with the given id.
func NewTaskBlock(content, taskID string) *Block {
	return &Block{
		Content:    content,
		Children:   []*Block{},
		Properties: map[string]string{TaskIDProperty: taskID},
	}
}

// NewLeaf creates a synthetic leaf block.
func NewLeaf(content string) *Block {
	return &Block{
		Content:    content,
		Children:   []*Block{},
		Properties: map[string]string{},
	}
}

// TaskID returns the source task id, or "" for synthetic blocks.
func (b *Block) TaskID() string {
	return b.Properties[TaskIDProperty]
}

// Append adds children in order.
func (b *Block) Append(children ...*Block) {
	b.Children = append(b.Children, children...)
}

// Walk visits every block depth-first, parents before children.
// parent is nil for the roots.
func Walk(blocks []*Block, fn func(b, parent *Block)) {
	var visit func(b, parent *Block)
	visit = func(b, parent *Block) {
		fn(b, parent)
		for _, c := range b.Children {
			visit(c, b)
		}
	}
	for _, b := range blocks {
		visit(b, nil)
	}
}

// CountTasks returns the number of blocks that carry a task id.
func CountTasks(blocks []*Block) int {
	n := 0
	Walk(blocks, func(b, _ *Block) {
		if b.TaskID() != "" {
			n++
		}
	})
	return n
}
