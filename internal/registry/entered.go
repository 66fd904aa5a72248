package registry

import (
	"context"
	"sync"
)

// enteredDevices fans out over the three category queries concurrently under
// the same criteria, keeps the records that are currently on-site, and
// concatenates them tagged by category. The join is all-or-nothing: if any
// branch fails the whole call fails and no partial results are returned.
//
// Both repository implementations share this projection so the entered view
// cannot drift between them.
func enteredDevices(ctx context.Context, repo Repository, criteria Criteria) ([]EnteredDevice, error) {
	var (
		wg        sync.WaitGroup
		computers []*Computer
		medical   []*MedicalDevice
		frequent  []*FrequentComputer

		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		items, err := repo.GetComputers(ctx, criteria)
		if err != nil {
			fail(err)
			return
		}
		computers = items
	}()
	go func() {
		defer wg.Done()
		items, err := repo.GetMedicalDevices(ctx, criteria)
		if err != nil {
			fail(err)
			return
		}
		medical = items
	}()
	go func() {
		defer wg.Done()
		items, err := repo.GetFrequentComputers(ctx, criteria)
		if err != nil {
			fail(err)
			return
		}
		frequent = items
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var entered []EnteredDevice
	for _, c := range computers {
		if c.Entered() {
			entered = append(entered, EnteredDevice{Kind: KindComputer, Computer: c})
		}
	}
	for _, d := range medical {
		if d.Entered() {
			entered = append(entered, EnteredDevice{Kind: KindMedicalDevice, MedicalDevice: d})
		}
	}
	for _, fc := range frequent {
		if fc.Device.Entered() {
			entered = append(entered, EnteredDevice{Kind: KindFrequentComputer, FrequentComputer: fc})
		}
	}

	return entered, nil
}
