package accounts

import "context"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) FindByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.FindByCode(ctx, code)
}
