package service

import (
	"github.com/emmetteckard/smartquote-b2b/internal/constants"
	"github.com/emmetteckard/smartquote-b2b/internal/models"
	"github.com/emmetteckard/smartquote-b2b/internal/repository"
)

// ClientService 客户档案服务
type ClientService struct {
	clientRepo repository.ClientRepository
}

// NewClientService 创建客户档案服务
func NewClientService(clientRepo repository.ClientRepository) *ClientService {
	return &ClientService{clientRepo: clientRepo}
}

// CreateClient 创建客户，档位缺省为默认档
func (s *ClientService) CreateClient(client *models.Client) error {
	if client.CompanyName == "" {
		return ErrInvalidQuantity
	}
	if client.Tier == "" {
		client.Tier = constants.DefaultTier
	}
	if !constants.IsValidTier(client.Tier) {
		return ErrInvalidTier
	}
	return s.clientRepo.Create(client)
}

// UpdateClient 更新客户档案
func (s *ClientService) UpdateClient(client *models.Client) error {
	if client.Tier != "" && !constants.IsValidTier(client.Tier) {
		return ErrInvalidTier
	}
	existing, err := s.clientRepo.GetByID(client.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return s.clientRepo.Update(client)
}

// GetClient 获取客户档案
func (s *ClientService) GetClient(id uint) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrNotFound
	}
	return client, nil
}

// ListClients 客户列表
func (s *ClientService) ListClients(filter repository.ClientListFilter) ([]models.Client, int64, error) {
	return s.clientRepo.List(filter)
}
