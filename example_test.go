package cardmap_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/agentstation/cardmap"
	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/save"
	"github.com/agentstation/cardmap/pkg/update"
)

// Export without a reading service: names that are already written in
// kana are verified locally and exported with themselves as the reading.
func Example() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "cardmap-example")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	store := records.NewMemory()
	_ = store.Replace(ctx, "st01", []cards.Card{
		{CardNumber: "ST01-002", Name: "ウソップ", Rarity: "C"},
	})

	client, err := cardmap.New(
		cardmap.WithStore(store),
		cardmap.WithStateDir(dir),
		cardmap.WithOutputDir(dir),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	result, err := client.Update(ctx, update.WithFormats(save.FormatJSON))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.FastVerified, result.Queue.Verified, result.Queue.Unverified)
	// Output: [ウソップ] 1 0
}
