package application

import (
	"context"
	"fmt"

	"parlor/domain/interfaces"
	"parlor/domain/testhelpers"
)

// fakeUnitOfWork hands out repository mocks and counts transaction
// boundaries so tests can assert commit/rollback behavior
type fakeUnitOfWork struct {
	accounts  *testhelpers.MockAccountRepository
	ledger    *testhelpers.MockLedgerRepository
	supply    *testhelpers.MockSupplyRepository
	rooms     *testhelpers.MockRoomRepository
	publisher *testhelpers.MockEventPublisher

	began      int
	committed  int
	rolledBack int
	inTx       bool
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{
		accounts:  &testhelpers.MockAccountRepository{},
		ledger:    &testhelpers.MockLedgerRepository{},
		supply:    &testhelpers.MockSupplyRepository{},
		rooms:     &testhelpers.MockRoomRepository{},
		publisher: &testhelpers.MockEventPublisher{},
	}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return fmt.Errorf("transaction already started")
	}
	u.began++
	u.inTx = true
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to commit")
	}
	u.committed++
	u.inTx = false
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	if u.inTx {
		u.rolledBack++
		u.inTx = false
	}
	return nil
}

func (u *fakeUnitOfWork) AccountRepository() interfaces.AccountRepository { return u.accounts }
func (u *fakeUnitOfWork) LedgerRepository() interfaces.LedgerRepository   { return u.ledger }
func (u *fakeUnitOfWork) SupplyRepository() interfaces.SupplyRepository   { return u.supply }
func (u *fakeUnitOfWork) RoomRepository() interfaces.RoomRepository       { return u.rooms }
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher             { return u.publisher }

// fakeUoWFactory returns the same unit of work for every Create so a
// test can wire expectations once
type fakeUoWFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeUoWFactory) Create() UnitOfWork { return f.uow }
