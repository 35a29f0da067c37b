// Package statement renders a card's transfer history as an XML account
// statement. Only the masked card number ever appears in the output.
package statement

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/avdeenkov/cardbank/internal/models"
)

const dateFormat = "2006-01-02 15:04:05"

// Build produces the XML statement for one card. The card must already carry
// its derived masked number; transfers are expected newest first, as the
// repository returns them.
func Build(card *models.Card, transfers []*models.Transfer, generatedAt time.Time) ([]byte, error) {
	if card.MaskedNumber == "" {
		return nil, fmt.Errorf("card %d has no masked number", card.ID)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("AccountStatement")

	header := root.CreateElement("Header")
	header.CreateElement("Card").SetText(card.MaskedNumber)
	header.CreateElement("Holder").SetText(card.Holder)
	header.CreateElement("Status").SetText(string(card.Status))
	header.CreateElement("GeneratedAt").SetText(generatedAt.Format(dateFormat))

	entries := root.CreateElement("Entries")
	for _, t := range transfers {
		entry := entries.CreateElement("Entry")
		entry.CreateElement("Reference").SetText(t.Reference)
		entry.CreateElement("Date").SetText(t.TransferDate.Format(dateFormat))

		direction := "CREDIT"
		counterparty := t.FromCardID
		if t.FromCardID == card.ID {
			direction = "DEBIT"
			counterparty = t.ToCardID
		}
		entry.CreateElement("Direction").SetText(direction)
		entry.CreateElement("Amount").SetText(t.Amount.String())
		entry.CreateElement("CounterpartyCard").SetText(fmt.Sprintf("%d", counterparty))
		if t.Description != "" {
			entry.CreateElement("Description").SetText(t.Description)
		}
	}

	root.CreateElement("ClosingBalance").SetText(card.Balance.String())

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize statement: %w", err)
	}
	return out, nil
}
