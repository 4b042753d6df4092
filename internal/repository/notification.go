package repository

import (
	"context"
	"fmt"

	"threadx/internal/kv"
	"threadx/internal/model"
)

type alertRepository struct {
	store *kv.Store
}

func NewAlertRepository(store *kv.Store) AlertRepository {
	return &alertRepository{store: store}
}

func (r *alertRepository) List(ctx context.Context, recipientID string) ([]model.Alert, error) {
	alerts, err := kv.Get(ctx, r.store, kv.AlertsKey(recipientID), []model.Alert{})
	if err != nil {
		return nil, fmt.Errorf("load alerts of %s: %w", recipientID, err)
	}
	return alerts, nil
}

func (r *alertRepository) Save(ctx context.Context, recipientID string, alerts []model.Alert) error {
	if len(alerts) > model.MaxAlerts {
		alerts = alerts[:model.MaxAlerts]
	}
	if err := r.store.Set(ctx, kv.AlertsKey(recipientID), alerts); err != nil {
		return fmt.Errorf("save alerts of %s: %w", recipientID, err)
	}
	return nil
}

func (r *alertRepository) Delete(ctx context.Context, recipientID string) error {
	return r.store.Remove(ctx, kv.AlertsKey(recipientID))
}
