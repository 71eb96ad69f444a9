package shell

import (
	"context"

	"go.uber.org/zap"

	"github.com/Rashteg/h-opc-rashteg/internal/opc"
)

// ResolveTag maps rel to the absolute tag of the child of current whose
// display name equals rel. The first match in enumeration order wins.
// Without a match, or when the folder cannot be explored, rel is returned
// unchanged.
func ResolveTag(ctx context.Context, client opc.Client, current *opc.Node, rel string) (string, error) {
	children, err := client.ExploreFolder(ctx, current.Tag)
	if err != nil {
		return rel, err
	}
	for _, c := range children {
		if c.Name == rel {
			return c.Tag, nil
		}
	}
	return rel, nil
}

// Resolve resolves rel against the cursor.
func (s *Session) Resolve(ctx context.Context, rel string) string {
	tag, err := ResolveTag(ctx, s.client, s.cursor, rel)
	if err != nil {
		s.log.Debug("folder not explorable, passing tag through",
			zap.String("folder", s.cursor.Tag), zap.String("tag", rel), zap.Error(err))
	}
	return tag
}

// Cd moves the cursor to the node named rel. The cursor is unchanged on
// error.
func (s *Session) Cd(ctx context.Context, rel string) error {
	node, err := s.client.FindNode(ctx, s.Resolve(ctx, rel))
	if err != nil {
		return err
	}
	s.cursor = node
	return nil
}

// Root moves the cursor to the client's root node.
func (s *Session) Root() {
	s.cursor = s.client.Root()
}

// Up moves the cursor to its parent. At the root it stays put.
func (s *Session) Up() {
	if parent, ok := s.cursor.Parent(); ok {
		s.cursor = parent
		return
	}
	s.cursor = s.client.Root()
}
