package catalog

import (
	"os"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

const exampleCatalog = `products:
  - id: desk
    name: Standing desk
    currency: USD
    base_price: 49900
    options:
      size:
        small: 0
        large: 10000
      finish:
        oak: 4500
        walnut: 7900
    add_ons:
      drawer: 3900
      cable_tray: 1900
    rules:
      - name: Volume discount
        when: quantity >= 5
        adjust: -subtotal / 10
      - name: Walnut bundle
        when: selections.finish == "walnut" && "drawer" in add_ons
        adjust: -1500
`

const exampleSelection = `product_id: desk
selections:
  size: large
  finish: oak
add_ons:
  - drawer
quantity: 1
`

// WriteExamples writes a sample catalog and selection file.
func WriteExamples(catalogPath, selectionPath string, force bool) error {
	for path, body := range map[string]string{catalogPath: exampleCatalog, selectionPath: exampleSelection} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil && !force {
			return ferrors.ValidationError("file already exists (use --force to overwrite)").
				WithContext("path", path).
				Build()
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write example").
				WithContext("path", path).
				Build()
		}
	}
	return nil
}
