// Package vault reads secret material from HashiCorp Vault.
//
// The gateway uses Vault for the token verification key only. Reads go to
// a KV version 2 mount; KV version 1 layouts are accepted as a fallback.
//
// Example:
//
//	client, err := vault.New(ctx, cfg, vault.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	pem, err := client.ReadField(ctx, "secret", "certgw/otp", "publicKey")
package vault
