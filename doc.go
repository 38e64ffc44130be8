// Package mint orchestrates ledger transactions for a creator-token
// platform settled on a Stellar-style ledger.
//
// Mint is designed as a library, not a service. It assembles, fee-accounts,
// multi-signs and submits atomic multi-operation transactions for:
//
//   - Asset issuance with custodied issuer and storage keys
//   - Purchases, gifts and subscription payments paid in the native
//     currency or the platform token
//   - Redemption from a creator's storage account
//   - Clawback-based revocation of assets issued with clawback enabled
//   - Trustlines, claimable balances and DEX offers
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/mint"
//	    "github.com/xraph/mint/ledgerclient"
//	    "github.com/xraph/mint/store/postgres"
//	)
//
//	client := ledgerclient.NewForURL("https://horizon-testnet.stellar.org",
//	    ledgerclient.DefaultConfig(), logger)
//
//	m, err := mint.New(store, client,
//	    mint.WithPlatform(signer),
//	    mint.WithPlatformAsset(token),
//	    mint.WithPrices(rates),
//	    mint.WithVault(vault),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop()
//
// # Flows
//
// Every flow is built from a fresh account snapshot, signed with the
// custodied keys among its required signers and submitted while the
// platform source lock is held:
//
//	res, err := m.Issue(ctx, mint.IssueRequest{
//	    CreatorID:      creatorID,
//	    Code:           "ALICE",
//	    Limit:          "1000",
//	    ContentPointer: cid,
//	}, mint.ByAdmin{})
//
// When the user account must sign in a wallet, pass mint.Anonymous{}. The
// result then carries the partially signed XDR and the missing signers;
// hand it to the wallet and finish with Submit:
//
//	res, err := m.Buy(ctx, req, mint.Anonymous{})
//	// ... wallet signs res.XDR ...
//	done, err := m.Submit(ctx, signedXDR)
//
// # Errors
//
// Errors detected before submission satisfy IsPreflight. A sequence
// conflict satisfies IsRebuildable: rebuild and submit again. Ledger
// rejections unwrap to LedgerRejectedError with the result codes.
//
// # Amounts
//
// Every amount is an integer count of stroops (1e-7 of a unit) tagged
// with its Unit. Conversions round up for amounts the platform receives
// and down for amounts it pays out.
//
// # TypeID
//
// All records use TypeID for globally unique, type-safe identifiers:
//
//	ast_01h2xcejqtf2nbrexx3vqjhp41  // Asset ID
//	sub_01h2xcejqtf2nbrexx3vqjhp41  // Subscription ID
//	int_01h455vb4pex5vsknk084sn02q  // Intent ID
package mint
