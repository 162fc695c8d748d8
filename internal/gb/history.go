package gb

import "fmt"

// GetHistory returns the most recent operations, newest first.
func (s *GBService) GetHistory(limit int) ([]*Operation, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// GetCopyLog returns every recorded copy of a group under this root, newest first.
func (s *GBService) GetCopyLog(groupNumber int) ([]*Materialization, error) {
	s.logger.Debug("fetching copy log", "group", groupNumber)

	records, err := s.database.FindMaterializationsByGroup(s.layout.Root, groupNumber)
	if err != nil {
		return nil, fmt.Errorf("finding copies: %w", err)
	}
	return records, nil
}
