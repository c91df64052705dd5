package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/cache"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
)

var platformNamePattern = regexp.MustCompile(`^[A-Z0-9]+( [A-Z0-9]+)*$`)

const maxPlatformNameLength = 24

// PlatformService manages the platforms holdings live on
type PlatformService struct {
	platforms PlatformStore
	cryptos   *CryptoService
	caches    *Caches
}

// NewPlatformService creates a new platform service
func NewPlatformService(platforms PlatformStore, cryptos *CryptoService, caches *Caches) *PlatformService {
	return &PlatformService{platforms: platforms, cryptos: cryptos, caches: caches}
}

// NormalizePlatformName trims and upper-cases name and validates it
func NormalizePlatformName(name string) (string, error) {
	name = strings.ToUpper(strings.Join(strings.Fields(name), " "))
	if name == "" || len(name) > maxPlatformNameLength || !platformNamePattern.MatchString(name) {
		return "", fmt.Errorf("platform name %q: %w", name, ErrInvalidInput)
	}
	return name, nil
}

// RetrieveAllPlatforms returns every platform ordered by name
func (s *PlatformService) RetrieveAllPlatforms(ctx context.Context) ([]models.Platform, error) {
	return s.caches.Platforms.GetOrCompute(ctx, cache.SingletonKey, s.platforms.FindAll)
}

// RetrievePlatform returns one platform
func (s *PlatformService) RetrievePlatform(ctx context.Context, id string) (models.Platform, error) {
	return s.caches.Platform.GetOrCompute(ctx, id, func(ctx context.Context) (models.Platform, error) {
		platform, err := s.platforms.FindByID(ctx, id)
		if err != nil {
			return models.Platform{}, notFound(err, "platform "+id)
		}
		return platform, nil
	})
}

// SavePlatform creates a platform with a unique name
func (s *PlatformService) SavePlatform(ctx context.Context, name string) (models.Platform, error) {
	name, err := NormalizePlatformName(name)
	if err != nil {
		return models.Platform{}, err
	}
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return models.Platform{}, err
	}

	platform := models.Platform{ID: uuid.NewString(), Name: name}
	if err := s.platforms.Create(ctx, &platform); err != nil {
		if repository.IsDuplicate(err) {
			return models.Platform{}, fmt.Errorf("platform %s: %w", name, ErrDuplicate)
		}
		return models.Platform{}, err
	}
	s.caches.InvalidatePlatform(ctx, platform.ID)
	log.Printf("Saved platform %s", name)
	return platform, nil
}

// UpdatePlatform renames a platform
func (s *PlatformService) UpdatePlatform(ctx context.Context, id, name string) (models.Platform, error) {
	name, err := NormalizePlatformName(name)
	if err != nil {
		return models.Platform{}, err
	}
	if _, err := s.platforms.FindByID(ctx, id); err != nil {
		return models.Platform{}, notFound(err, "platform "+id)
	}
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return models.Platform{}, err
	}

	if err := s.platforms.Rename(ctx, id, name); err != nil {
		if repository.IsDuplicate(err) {
			return models.Platform{}, fmt.Errorf("platform %s: %w", name, ErrDuplicate)
		}
		return models.Platform{}, notFound(err, "platform "+id)
	}
	s.caches.InvalidatePlatform(ctx, id)

	return s.platforms.FindByID(ctx, id)
}

// DeletePlatform removes a platform with all of its holdings and drops
// cryptos no longer referenced anywhere.
func (s *PlatformService) DeletePlatform(ctx context.Context, id string) error {
	holdings, err := s.platforms.Delete(ctx, id)
	if err != nil {
		return notFound(err, "platform "+id)
	}
	s.caches.InvalidatePlatform(ctx, id)
	s.caches.InvalidateHoldings(ctx, holdings...)

	for _, cryptoID := range cryptoIDsOf(holdings) {
		if _, err := s.cryptos.DeleteCryptoIfNotUsed(ctx, cryptoID); err != nil {
			log.Printf("Error deleting unused crypto %s: %v", cryptoID, err)
		}
	}
	log.Printf("Deleted platform %s and %d holdings", id, len(holdings))
	return nil
}

func (s *PlatformService) ensureNameFree(ctx context.Context, name, exceptID string) error {
	existing, err := s.platforms.FindByName(ctx, name)
	if err == nil && existing.ID != exceptID {
		return fmt.Errorf("platform %s: %w", name, ErrDuplicate)
	}
	if err != nil && !repository.IsNotFound(err) {
		return err
	}
	return nil
}
