package app

import (
	"fmt"

	"github.com/kabirpuri/RecurrentLidarNet/internal/bag"
)

// RunBagInfo prints a summary of a recorded session container.
func RunBagInfo(path string) error {
	info, err := bag.ReadInfo(path)
	if err != nil {
		return err
	}

	fmt.Printf("session:  %s\n", info.Path)
	fmt.Printf("id:       %s\n", info.ID)
	fmt.Printf("created:  %s\n", info.CreatedAt)
	fmt.Printf("messages: %d\n", info.Messages)
	fmt.Println("topics:")
	for _, t := range info.Topics {
		fmt.Printf("  %-10s %-20s %d msgs\n", t.Name, t.Type, t.Messages)
	}
	return nil
}
